package mapping

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/char5742/kbdpad/internal/consts"
)

// ゲームパッドのボタン名。evdev の表では BTN_A などの別名と同じコードになるため明示する
var gamepadButtons = map[string]uint16{
	"BTN_SOUTH":  consts.BtnSouth,
	"BTN_A":      consts.BtnSouth,
	"BTN_EAST":   consts.BtnEast,
	"BTN_B":      consts.BtnEast,
	"BTN_C":      consts.BtnC,
	"BTN_NORTH":  consts.BtnNorth,
	"BTN_X":      consts.BtnNorth,
	"BTN_WEST":   consts.BtnWest,
	"BTN_Y":      consts.BtnWest,
	"BTN_Z":      consts.BtnZ,
	"BTN_TL":     consts.BtnTL,
	"BTN_TR":     consts.BtnTR,
	"BTN_TL2":    consts.BtnTL2,
	"BTN_TR2":    consts.BtnTR2,
	"BTN_SELECT": consts.BtnSelect,
	"BTN_START":  consts.BtnStart,
	"BTN_MODE":   consts.BtnMode,
	"BTN_THUMBL": consts.BtnThumbL,
	"BTN_THUMBR": consts.BtnThumbR,
}

var gamepadButtonNames = map[uint16]string{
	consts.BtnSouth:  "BTN_SOUTH",
	consts.BtnEast:   "BTN_EAST",
	consts.BtnC:      "BTN_C",
	consts.BtnNorth:  "BTN_NORTH",
	consts.BtnWest:   "BTN_WEST",
	consts.BtnZ:      "BTN_Z",
	consts.BtnTL:     "BTN_TL",
	consts.BtnTR:     "BTN_TR",
	consts.BtnTL2:    "BTN_TL2",
	consts.BtnTR2:    "BTN_TR2",
	consts.BtnSelect: "BTN_SELECT",
	consts.BtnStart:  "BTN_START",
	consts.BtnMode:   "BTN_MODE",
	consts.BtnThumbL: "BTN_THUMBL",
	consts.BtnThumbR: "BTN_THUMBR",
}

var (
	reverseOnce sync.Once
	keyCodes    map[string]uint16
	absCodes    map[string]uint16
)

func buildReverse() {
	keyCodes = make(map[string]uint16, len(evdev.KEY)+len(evdev.BTN))
	for _, table := range []map[int]string{evdev.KEY, evdev.BTN} {
		for code, name := range table {
			keyCodes[name] = uint16(code)
		}
	}
	for name, code := range gamepadButtons {
		keyCodes[name] = code
	}
	absCodes = make(map[string]uint16, len(evdev.ABS))
	for code, name := range evdev.ABS {
		absCodes[name] = uint16(code)
	}
}

// ParseCode はイベントコード名 (KEY_LEFT, BTN_SOUTH, ABS_X) または数値をコードへ変換する
func ParseCode(typ uint16, name string) (uint16, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, fmt.Errorf("empty code name")
	}
	if n, err := strconv.ParseUint(name, 0, 16); err == nil {
		return uint16(n), nil
	}

	reverseOnce.Do(buildReverse)
	switch typ {
	case consts.Key:
		if code, ok := keyCodes[name]; ok {
			return code, nil
		}
	case consts.Abs:
		if code, ok := absCodes[name]; ok {
			return code, nil
		}
	default:
		return 0, fmt.Errorf("unsupported event type %d", typ)
	}
	return 0, fmt.Errorf("unknown code name %q", name)
}

// CodeName はコードの表示名を返す。未知のコードは数値で表す
func CodeName(typ uint16, code uint16) string {
	switch typ {
	case consts.Key:
		if name, ok := gamepadButtonNames[code]; ok {
			return name
		}
		if name, ok := evdev.KEY[int(code)]; ok {
			return name
		}
		if name, ok := evdev.BTN[int(code)]; ok {
			return name
		}
	case consts.Abs:
		if name, ok := evdev.ABS[int(code)]; ok {
			return name
		}
	}
	return fmt.Sprintf("0x%x", code)
}
