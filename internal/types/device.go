package types

import "github.com/char5742/kbdpad/internal/consts"

// InputID はデバイス識別子を表す構造体
type InputID struct {
	Bustype uint16 // バスタイプ
	Vendor  uint16 // ベンダーID
	Product uint16 // 製品ID
	Version uint16 // バージョン
}

// UinputSetup は UI_DEV_SETUP に渡す構造体 (struct uinput_setup)
type UinputSetup struct {
	ID           InputID                  // デバイス識別子
	Name         [consts.MaxNameSize]byte // デバイス名
	FFEffectsMax uint32                   // 最大エフェクト数
}

// AbsInfo は絶対座標軸の校正値 (struct input_absinfo)
type AbsInfo struct {
	Value      int32 // 初期値
	Minimum    int32 // 最小値
	Maximum    int32 // 最大値
	Fuzz       int32 // ノイズ除去の閾値
	Flat       int32 // デッドゾーン
	Resolution int32 // 分解能
}

// Center は軸の中央値を返す。範囲が int32 に収まらなくても溢れないよう int64 で計算する
func (a AbsInfo) Center() int32 {
	return int32(int64(a.Minimum) + (int64(a.Maximum)-int64(a.Minimum))/2)
}

// Span は Maximum-Minimum を int64 で返す
func (a AbsInfo) Span() int64 {
	return int64(a.Maximum) - int64(a.Minimum)
}

// Contains は値が校正範囲内にあるかを返す
func (a AbsInfo) Contains(v int32) bool {
	return v >= a.Minimum && v <= a.Maximum
}

// UinputAbsSetup は UI_ABS_SETUP に渡す構造体 (struct uinput_abs_setup)
type UinputAbsSetup struct {
	Code uint16
	_    [2]byte
	Info AbsInfo
}
