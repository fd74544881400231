package translator

import (
	"github.com/char5742/kbdpad/internal/consts"
	"github.com/char5742/kbdpad/internal/mapping"
	"github.com/char5742/kbdpad/internal/types"
)

// Kind は物理イベントの分類
type Kind int

const (
	KindOther Kind = iota // キー以外 (EV_MSC など)
	KindSync              // EV_SYN
	KindKey               // キーの押下、解放、リピート
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindSync:
		return "sync"
	default:
		return "other"
	}
}

// Classify はイベントを分類する
func Classify(ev types.Event) Kind {
	switch ev.Type {
	case consts.Key:
		return KindKey
	case consts.Syn:
		return KindSync
	default:
		return KindOther
	}
}

// Mapper はマッピングテーブルの検索部分
type Mapper interface {
	LookupAxis(key uint16, value int32) (mapping.AxisTarget, bool)
	LookupKey(key uint16) (uint16, bool)
}

// Translator は物理キーイベントを仮想ゲームパッドのイベントへ変換する。状態を持たない
type Translator struct {
	mapper Mapper
}

func New(mapper Mapper) *Translator {
	return &Translator{mapper: mapper}
}

// Translate は一つの物理イベントから 0〜2 個の出力イベントを作る
//
// 軸イベントが先、ボタンイベントが後。キーイベント以外は無視する。
func (t *Translator) Translate(ev types.Event) []types.Event {
	switch Classify(ev) {
	case KindKey:
		return t.translateKey(ev)
	case KindSync, KindOther:
		return nil
	default:
		return nil
	}
}

func (t *Translator) translateKey(ev types.Event) []types.Event {
	var out []types.Event
	if target, ok := t.mapper.LookupAxis(ev.Code, ev.Value); ok {
		out = append(out, types.NewEvent(consts.Abs, target.Axis, target.Position))
	}
	if button, ok := t.mapper.LookupKey(ev.Code); ok {
		out = append(out, types.NewEvent(consts.Key, button, ev.Value))
	}
	return out
}
