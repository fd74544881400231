package consts

// UInput デバイスの定数（uinput.hから）
const (
	MaxNameSize = 80         // デバイス名の最大サイズ
	DevCreate   = 0x5501     // デバイス作成用のIOCTL
	DevDestroy  = 0x5502     // デバイス破棄用のIOCTL
	DevSetup    = 0x405c5503 // uinput_setup 書き込み用のIOCTL
	AbsSetup    = 0x401c5504 // uinput_abs_setup 書き込み用のIOCTL
	SetEvBit    = 0x40045564 // イベントビット設定用のIOCTL
	SetKeyBit   = 0x40045565 // キービット設定用のIOCTL
	SetAbsBit   = 0x40045567 // 絶対座標ビット設定用のIOCTL
	BusUsb      = 0x03       // USBバスタイプ
	BusVirtual  = 0x06       // 仮想バスタイプ
)

// その他のデバイス制御用定数
const (
	AbsSize     = 64         // 絶対座標の配列サイズ
	KeyMax      = 0x2ff      // キーコードの最大値
	EVIOCGRAB   = 0x40044590 // デバイスの排他制御用のIOCTL
	SysNameSize = 64         // UI_GET_SYSNAME で受け取る名前の最大長
)

// GetSysName は UI_GET_SYSNAME(len) のリクエスト番号を返す
func GetSysName(length int) uintptr {
	const (
		iocRead   = 2
		dirShift  = 30
		sizeShift = 16
		typeShift = 8
	)
	return uintptr(iocRead)<<dirShift | uintptr(length)<<sizeShift | uintptr('U')<<typeShift | 44
}
