package features

import (
	"fmt"
	"unicode/utf8"

	"github.com/bendahl/uinput"

	"github.com/char5742/kbdpad/internal/consts"
	"github.com/char5742/kbdpad/internal/types"
)

// Passthrough は専有したキーボードのうち、ゲームパッドに割り当てられていないキーを
// 仮想キーボードへ流す
type Passthrough struct {
	keyboard uinput.Keyboard
}

const passthroughSuffix = " passthrough"

// PassthroughName はゲームパッド名から転送用キーボードの名前を作る
//
// uinput の名前は終端の NUL を含めて consts.MaxNameSize バイトまで。収まらない場合は
// 元の名前を文字の途中で切らないように短くする。
func PassthroughName(gamepad string) string {
	limit := consts.MaxNameSize - 1 - len(passthroughSuffix)
	for len(gamepad) > limit {
		_, size := utf8.DecodeLastRuneInString(gamepad)
		gamepad = gamepad[:len(gamepad)-size]
	}
	return gamepad + passthroughSuffix
}

// CreatePassthrough は転送用の仮想キーボードを作成する
func CreatePassthrough(path string, name string) (*Passthrough, error) {
	kb, err := uinput.CreateKeyboard(path, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create passthrough keyboard: %w", err)
	}
	return &Passthrough{keyboard: kb}, nil
}

// Forward はキーの押下と解放を転送する。リピートは仮想キーボード側に任せる
func (p *Passthrough) Forward(ev types.Event) error {
	if ev.Type != consts.Key {
		return nil
	}
	switch ev.Value {
	case consts.KeyPressed:
		return p.keyboard.KeyDown(int(ev.Code))
	case consts.KeyReleased:
		return p.keyboard.KeyUp(int(ev.Code))
	default:
		return nil
	}
}

func (p *Passthrough) Close() error {
	return p.keyboard.Close()
}
