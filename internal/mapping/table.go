package mapping

import (
	"errors"
	"fmt"
	"sort"

	"github.com/char5742/kbdpad/internal/consts"
	"github.com/char5742/kbdpad/internal/types"
)

var (
	ErrDuplicateTransition = errors.New("duplicate axis transition")
	ErrDuplicateKey        = errors.New("duplicate key binding")
	ErrDuplicateCapability = errors.New("duplicate capability")
	ErrInvalidRange        = errors.New("invalid axis range")
	ErrInvalidValue        = errors.New("invalid key value")
	ErrUndeclaredAxis      = errors.New("axis is not declared")
	ErrUndeclaredButton    = errors.New("button is not declared")
	ErrOutOfRange          = errors.New("axis position out of range")
	ErrNotNeutral          = errors.New("release does not return axis to center")
	ErrNoRelease           = errors.New("directional key has no release entry on the same axis")
)

// Table は起動時に一度だけ構築される読み取り専用のマッピングテーブル
type Table struct {
	name    string
	axes    map[Transition]AxisTarget
	keys    map[uint16]uint16
	ranges  map[uint16]types.AbsInfo
	axisDef []AxisSpec
	buttons []uint16
}

// New はプロファイルを検証してテーブルを構築する
func New(p Profile) (*Table, error) {
	t := &Table{
		name:    p.Name,
		axes:    make(map[Transition]AxisTarget, len(p.AxisMap)),
		keys:    make(map[uint16]uint16, len(p.KeyMap)),
		ranges:  make(map[uint16]types.AbsInfo, len(p.Axes)),
		axisDef: append([]AxisSpec(nil), p.Axes...),
		buttons: append([]uint16(nil), p.Buttons...),
	}

	for _, a := range p.Axes {
		if _, exists := t.ranges[a.Code]; exists {
			return nil, fmt.Errorf("axis %s: %w", CodeName(consts.Abs, a.Code), ErrDuplicateCapability)
		}
		if a.Info.Minimum >= a.Info.Maximum {
			return nil, fmt.Errorf("axis %s: min %d >= max %d: %w",
				CodeName(consts.Abs, a.Code), a.Info.Minimum, a.Info.Maximum, ErrInvalidRange)
		}
		t.ranges[a.Code] = a.Info
	}

	declared := make(map[uint16]bool, len(p.Buttons))
	for _, b := range p.Buttons {
		if declared[b] {
			return nil, fmt.Errorf("button %s: %w", CodeName(consts.Key, b), ErrDuplicateCapability)
		}
		declared[b] = true
	}

	for _, e := range p.AxisMap {
		tr := Transition{Key: e.Key, Value: e.Value}
		name := CodeName(consts.Key, e.Key)
		if e.Value < consts.KeyReleased || e.Value > consts.KeyRepeat {
			return nil, fmt.Errorf("%s value %d: %w", name, e.Value, ErrInvalidValue)
		}
		if _, exists := t.axes[tr]; exists {
			return nil, fmt.Errorf("%s value %d: %w", name, e.Value, ErrDuplicateTransition)
		}
		info, ok := t.ranges[e.Axis]
		if !ok {
			return nil, fmt.Errorf("%s -> %s: %w", name, CodeName(consts.Abs, e.Axis), ErrUndeclaredAxis)
		}
		if !info.Contains(e.Position) {
			return nil, fmt.Errorf("%s -> %s position %d not in [%d, %d]: %w",
				name, CodeName(consts.Abs, e.Axis), e.Position, info.Minimum, info.Maximum, ErrOutOfRange)
		}
		if e.Value == consts.KeyReleased && e.Position != info.Center() {
			return nil, fmt.Errorf("%s -> %s position %d, center %d: %w",
				name, CodeName(consts.Abs, e.Axis), e.Position, info.Center(), ErrNotNeutral)
		}
		t.axes[tr] = AxisTarget{Axis: e.Axis, Position: e.Position}
	}

	// 押下やリピートで軸を動かすキーは、解放で同じ軸を中央に戻さなければならない
	for tr, target := range t.axes {
		if tr.Value == consts.KeyReleased {
			continue
		}
		release, ok := t.axes[Transition{Key: tr.Key, Value: consts.KeyReleased}]
		if !ok || release.Axis != target.Axis {
			return nil, fmt.Errorf("%s -> %s: %w",
				CodeName(consts.Key, tr.Key), CodeName(consts.Abs, target.Axis), ErrNoRelease)
		}
	}

	for _, e := range p.KeyMap {
		name := CodeName(consts.Key, e.Key)
		if _, exists := t.keys[e.Key]; exists {
			return nil, fmt.Errorf("%s: %w", name, ErrDuplicateKey)
		}
		if !declared[e.Button] {
			return nil, fmt.Errorf("%s -> %s: %w", name, CodeName(consts.Key, e.Button), ErrUndeclaredButton)
		}
		t.keys[e.Key] = e.Button
	}

	return t, nil
}

// MustNew は New と同じだが、エラー時に panic する。組み込みプロファイル用
func MustNew(p Profile) *Table {
	t, err := New(p)
	if err != nil {
		panic(fmt.Sprintf("mapping: profile %q: %v", p.Name, err))
	}
	return t
}

// LookupAxis は遷移に対応する軸イベントを返す
func (t *Table) LookupAxis(key uint16, value int32) (AxisTarget, bool) {
	target, ok := t.axes[Transition{Key: key, Value: value}]
	return target, ok
}

// LookupKey は物理キーに対応する仮想ボタンを返す
func (t *Table) LookupKey(key uint16) (uint16, bool) {
	button, ok := t.keys[key]
	return button, ok
}

func (t *Table) Name() string { return t.name }

// Buttons は仮想デバイスに宣言するボタンのコピーを返す
func (t *Table) Buttons() []uint16 {
	return append([]uint16(nil), t.buttons...)
}

// Axes は仮想デバイスに宣言する軸のコピーを返す
func (t *Table) Axes() []AxisSpec {
	return append([]AxisSpec(nil), t.axisDef...)
}

// AxisEntries はキーコード順に並べた軸マッピングを返す
func (t *Table) AxisEntries() []AxisEntry {
	entries := make([]AxisEntry, 0, len(t.axes))
	for tr, target := range t.axes {
		entries = append(entries, AxisEntry{Key: tr.Key, Value: tr.Value, Axis: target.Axis, Position: target.Position})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Key != entries[j].Key {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].Value < entries[j].Value
	})
	return entries
}

// KeyEntries はキーコード順に並べたボタンマッピングを返す
func (t *Table) KeyEntries() []KeyEntry {
	entries := make([]KeyEntry, 0, len(t.keys))
	for key, button := range t.keys {
		entries = append(entries, KeyEntry{Key: key, Button: button})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// Profile はテーブルを再び宣言的な形に戻す
func (t *Table) Profile() Profile {
	return Profile{
		Name:    t.name,
		Buttons: t.Buttons(),
		Axes:    t.Axes(),
		AxisMap: t.AxisEntries(),
		KeyMap:  t.KeyEntries(),
	}
}
