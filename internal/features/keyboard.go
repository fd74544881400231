package features

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unsafe"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/char5742/kbdpad/internal/consts"
	"github.com/char5742/kbdpad/internal/types"
)

// キーボードからの入力を処理するインターフェース
type Keyboard interface {
	// ReadEvents は次のイベント群が届くまでブロックする。閉じられた後は io.EOF を返す
	ReadEvents() ([]types.Event, error)
	Name() string
	Close() error
}

type physicalKeyboard struct {
	dev       *evdev.InputDevice
	log       zerolog.Logger
	closeOnce sync.Once
	closeErr  error
}

// OpenKeyboard はキーボードを開き、すべてのキーが離されるのを待ってから専有する
func OpenKeyboard(path string, releaseTimeout time.Duration, logger zerolog.Logger) (Keyboard, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyboard %s: %w", path, err)
	}
	kb := &physicalKeyboard{dev: dev, log: logger.With().Str("keyboard", dev.Name).Logger()}

	// 起動に使った Enter などが押されたまま専有すると、デスクトップ側でキーが離されない
	if err := waitForRelease(dev.File, releaseTimeout); err != nil {
		kb.log.Warn().Err(err).Msg("押下中のキーが残っています")
	}

	if err := dev.Grab(); err != nil {
		_ = dev.File.Close()
		return nil, fmt.Errorf("failed to grab keyboard %s: %w", path, err)
	}
	kb.log.Info().Str("path", path).Msg("キーボードを専有しました")
	return kb, nil
}

func (k *physicalKeyboard) Name() string {
	return k.dev.Name
}

func (k *physicalKeyboard) ReadEvents() ([]types.Event, error) {
	raw, err := k.dev.Read()
	if err != nil {
		if errors.Is(err, os.ErrClosed) || errors.Is(err, unix.ENODEV) {
			return nil, io.EOF
		}
		return nil, err
	}
	events := make([]types.Event, len(raw))
	for i, ev := range raw {
		events[i] = types.Event{Time: ev.Time, Type: ev.Type, Code: ev.Code, Value: ev.Value}
	}
	return events, nil
}

// Close は専有を解除してからデバイスを閉じる。ブロック中の ReadEvents は io.EOF を返す
//
// シグナルハンドラと終了処理の両方から呼ばれるため、二度目以降は最初の結果を返す。
func (k *physicalKeyboard) Close() error {
	k.closeOnce.Do(func() {
		releaseErr := k.dev.Release()
		k.closeErr = errors.Join(releaseErr, k.dev.File.Close())
		k.log.Info().Msg("キーボードの専有を解除しました")
	})
	return k.closeErr
}

// waitForRelease は押下中のキーがなくなるまで待つ
func waitForRelease(file *os.File, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		keys, err := getPressedKeys(file)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%d key(s) still pressed", len(keys))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func getPressedKeys(file *os.File) ([]int, error) {
	const eviocgkey = 0x80604518 // EVIOCGKEY(96)

	keyBitsSize := (consts.KeyMax / 8) + 1
	keyBits := make([]byte, keyBitsSize)

	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		file.Fd(),
		uintptr(eviocgkey),
		uintptr(unsafe.Pointer(&keyBits[0])),
	)
	if errno != 0 {
		return nil, errno
	}
	return pressedFromBits(keyBits), nil
}

func pressedFromBits(keyBits []byte) []int {
	var pressed []int
	for keyCode := 0; keyCode < len(keyBits)*8; keyCode++ {
		byteIndex := keyCode / 8
		bitIndex := keyCode % 8
		if (keyBits[byteIndex] & (1 << bitIndex)) != 0 {
			pressed = append(pressed, keyCode)
		}
	}
	return pressed
}
