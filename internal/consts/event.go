package consts

// イベントタイプの定数（input-event-codes.hより）
const (
	Syn = 0x00 // 同期イベント
	Key = 0x01 // キーイベント
	Rel = 0x02 // 相対座標イベント
	Abs = 0x03 // 絶対座標イベント
	Msc = 0x04 // その他のイベント

	SynReport = 0 // イベント報告の同期
)

// キーイベントの値
const (
	KeyReleased = 0
	KeyPressed  = 1
	KeyRepeat   = 2
)

// 絶対座標軸
const (
	AbsX     = 0x00
	AbsY     = 0x01
	AbsZ     = 0x02
	AbsRX    = 0x03
	AbsRY    = 0x04
	AbsRZ    = 0x05
	AbsHat0X = 0x10
	AbsHat0Y = 0x11
)

// ゲームパッドのボタン
const (
	BtnSouth  = 0x130 // BTN_A
	BtnEast   = 0x131 // BTN_B
	BtnC      = 0x132
	BtnNorth  = 0x133 // BTN_X
	BtnWest   = 0x134 // BTN_Y
	BtnZ      = 0x135
	BtnTL     = 0x136
	BtnTR     = 0x137
	BtnTL2    = 0x138
	BtnTR2    = 0x139
	BtnSelect = 0x13a
	BtnStart  = 0x13b
	BtnMode   = 0x13c
	BtnThumbL = 0x13d
	BtnThumbR = 0x13e
)
