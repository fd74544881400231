package types

import (
	"fmt"
	"syscall"
)

// Event は入力イベントを表す構造体 (struct input_event)
type Event struct {
	Time  syscall.Timeval // イベント発生時刻
	Type  uint16          // イベントタイプ
	Code  uint16          // イベントコード
	Value int32           // イベント値
}

// NewEvent は時刻を持たないイベントを作る。uinput は書き込み時に時刻を付与する
func NewEvent(typ, code uint16, value int32) Event {
	return Event{Type: typ, Code: code, Value: value}
}

func (e Event) String() string {
	return fmt.Sprintf("type=%d code=%d value=%d", e.Type, e.Code, e.Value)
}
