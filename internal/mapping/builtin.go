package mapping

import (
	"fmt"
	"sort"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/char5742/kbdpad/internal/consts"
	"github.com/char5742/kbdpad/internal/types"
)

// StickInfo は実機のスティックを模した校正値。中央 256、範囲 0..512
var StickInfo = types.AbsInfo{
	Value:      256,
	Minimum:    0,
	Maximum:    512,
	Fuzz:       20,
	Flat:       20,
	Resolution: 1,
}

var (
	stickX = AxisSpec{Code: consts.AbsX, Info: StickInfo}
	stickY = AxisSpec{Code: consts.AbsY, Info: StickInfo}
)

const DefaultProfile = "standard"

// X軸と2ボタンだけの最小構成
func minimalProfile() Profile {
	return Profile{
		Name:    "minimal",
		Buttons: []uint16{consts.BtnSouth, consts.BtnEast},
		Axes:    []AxisSpec{stickX},
		AxisMap: Stick(evdev.KEY_LEFT, evdev.KEY_RIGHT, stickX),
		KeyMap: []KeyEntry{
			{Key: evdev.KEY_A, Button: consts.BtnSouth},
			{Key: evdev.KEY_S, Button: consts.BtnEast},
		},
	}
}

// 十字キーでX/Y軸、4つのフェイスボタンとスタート/セレクト
func standardProfile() Profile {
	axisMap := Stick(evdev.KEY_LEFT, evdev.KEY_RIGHT, stickX)
	axisMap = append(axisMap, Stick(evdev.KEY_UP, evdev.KEY_DOWN, stickY)...)
	return Profile{
		Name: "standard",
		Buttons: []uint16{
			consts.BtnSouth,
			consts.BtnEast,
			consts.BtnNorth,
			consts.BtnWest,
			consts.BtnStart,
			consts.BtnSelect,
		},
		Axes:    []AxisSpec{stickX, stickY},
		AxisMap: axisMap,
		KeyMap: []KeyEntry{
			{Key: evdev.KEY_A, Button: consts.BtnSouth},
			{Key: evdev.KEY_SPACE, Button: consts.BtnSouth},
			{Key: evdev.KEY_S, Button: consts.BtnEast},
			{Key: evdev.KEY_W, Button: consts.BtnNorth},
			{Key: evdev.KEY_Q, Button: consts.BtnWest},
			{Key: evdev.KEY_ENTER, Button: consts.BtnStart},
			{Key: evdev.KEY_BACKSPACE, Button: consts.BtnSelect},
		},
	}
}

// standard にショルダー、スティック押し込み、モードボタンと別名を加えたもの
func fullProfile() Profile {
	p := standardProfile()
	p.Name = "full"
	p.Buttons = append(p.Buttons,
		consts.BtnTL,
		consts.BtnTR,
		consts.BtnThumbL,
		consts.BtnThumbR,
		consts.BtnMode,
	)
	p.KeyMap = append(p.KeyMap,
		KeyEntry{Key: evdev.KEY_E, Button: consts.BtnTL},
		KeyEntry{Key: evdev.KEY_R, Button: consts.BtnTR},
		KeyEntry{Key: evdev.KEY_1, Button: consts.BtnThumbL},
		KeyEntry{Key: evdev.KEY_2, Button: consts.BtnThumbR},
		KeyEntry{Key: evdev.KEY_TAB, Button: consts.BtnMode},
		KeyEntry{Key: evdev.KEY_KPENTER, Button: consts.BtnStart},
	)
	return p
}

var builtins = map[string]func() Profile{
	"minimal":  minimalProfile,
	"standard": standardProfile,
	"full":     fullProfile,
}

// Builtin は組み込みプロファイルを名前で返す
func Builtin(name string) (Profile, error) {
	build, ok := builtins[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %v)", name, BuiltinNames())
	}
	return build(), nil
}

// BuiltinNames は組み込みプロファイル名の一覧
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
