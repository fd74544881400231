package mapping

import "github.com/char5742/kbdpad/internal/types"

// Transition は物理キーの状態遷移 (キーコード, 値)
type Transition struct {
	Key   uint16
	Value int32
}

// AxisTarget は遷移が生成する軸イベント (軸, 校正済み位置)
type AxisTarget struct {
	Axis     uint16
	Position int32
}

// AxisSpec は仮想デバイスに宣言する絶対座標軸
type AxisSpec struct {
	Code uint16
	Info types.AbsInfo
}

// AxisEntry は方向キーの一つの遷移を軸の位置へ対応付ける
type AxisEntry struct {
	Key      uint16
	Value    int32
	Axis     uint16
	Position int32
}

// KeyEntry は物理キーを仮想ボタンへ対応付ける。複数のキーが同じボタンを指してもよい
type KeyEntry struct {
	Key    uint16
	Button uint16
}

// Profile はマッピングテーブルの宣言的な定義
//
// 仮想デバイスが持つボタンと軸もプロファイルの一部として宣言するため、
// 「どのボタンがあるか」「Y軸を使うか」といった違いはすべてデータで表現される。
type Profile struct {
	Name    string
	Buttons []uint16
	Axes    []AxisSpec
	AxisMap []AxisEntry
	KeyMap  []KeyEntry
}

// Direction は方向キーの押下と解放の二つのエントリを作る
//
// 押下で軸を position へ、解放で軸の中央へ戻す。
func Direction(key uint16, axis AxisSpec, position int32) []AxisEntry {
	return []AxisEntry{
		{Key: key, Value: 1, Axis: axis.Code, Position: position},
		{Key: key, Value: 0, Axis: axis.Code, Position: axis.Info.Center()},
	}
}

// Stick は二つの方向キーで一本の軸を操作するエントリを作る
func Stick(negative, positive uint16, axis AxisSpec) []AxisEntry {
	entries := Direction(negative, axis, axis.Info.Minimum)
	return append(entries, Direction(positive, axis, axis.Info.Maximum)...)
}
