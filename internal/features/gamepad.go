package features

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/char5742/kbdpad/internal/consts"
	"github.com/char5742/kbdpad/internal/mapping"
	"github.com/char5742/kbdpad/internal/types"
	"github.com/char5742/kbdpad/internal/utils"
)

var (
	ErrPermission      = errors.New("insufficient privilege to create virtual device")
	ErrDeviceCreation  = errors.New("virtual device creation failed")
	ErrEmit            = errors.New("failed to emit events")
	ErrClosed          = errors.New("virtual device is closed")
	ErrNodesEnumerated = errors.New("device nodes already enumerated")
)

// sysfs 上の仮想入力デバイスのディレクトリ
var sysfsInputRoot = "/sys/devices/virtual/input"

// Identity は仮想デバイスの識別情報。変換処理には影響しない
type Identity struct {
	Name    string `json:"name"`
	Bustype uint16 `json:"bustype"`
	Vendor  uint16 `json:"vendor"`
	Product uint16 `json:"product"`
	Version uint16 `json:"version"`
}

// DefaultIdentity は Xbox 360 パッドとして認識される識別情報
var DefaultIdentity = Identity{
	Name:    "Microsoft X-Box 360 pad",
	Bustype: consts.BusUsb,
	Vendor:  0x045e,
	Product: 0x028e,
	Version: 0x0110,
}

// AxisCapability は校正値付きの絶対座標軸
type AxisCapability struct {
	Axis uint16
	Info types.AbsInfo
}

// Capabilities は仮想デバイスに登録するボタンと軸
type Capabilities struct {
	Buttons []uint16
	Axes    []AxisCapability
}

// CapabilitiesFor はマッピングテーブルが宣言するボタンと軸から Capabilities を作る
func CapabilitiesFor(t *mapping.Table) Capabilities {
	caps := Capabilities{Buttons: t.Buttons()}
	for _, a := range t.Axes() {
		caps.Axes = append(caps.Axes, AxisCapability{Axis: a.Code, Info: a.Info})
	}
	return caps
}

// Validate は OS に登録する前に宣言を検査する
func (c Capabilities) Validate() error {
	if len(c.Buttons) == 0 && len(c.Axes) == 0 {
		return errors.New("no buttons or axes declared")
	}
	seen := make(map[uint16]bool)
	for _, b := range c.Buttons {
		if b > consts.KeyMax {
			return fmt.Errorf("button code 0x%x exceeds KEY_MAX", b)
		}
		if seen[b] {
			return fmt.Errorf("button %s declared twice", mapping.CodeName(consts.Key, b))
		}
		seen[b] = true
	}
	seenAxis := make(map[uint16]bool)
	for _, a := range c.Axes {
		name := mapping.CodeName(consts.Abs, a.Axis)
		switch {
		case a.Axis >= consts.AbsSize:
			return fmt.Errorf("axis code 0x%x exceeds ABS_MAX", a.Axis)
		case seenAxis[a.Axis]:
			return fmt.Errorf("axis %s declared twice", name)
		case a.Info.Minimum >= a.Info.Maximum:
			return fmt.Errorf("axis %s: min %d must be less than max %d", name, a.Info.Minimum, a.Info.Maximum)
		case a.Info.Fuzz < 0 || a.Info.Flat < 0 || a.Info.Resolution < 0:
			return fmt.Errorf("axis %s: fuzz, flat and resolution must not be negative", name)
		case int64(a.Info.Flat) > a.Info.Span():
			return fmt.Errorf("axis %s: flat %d exceeds range", name, a.Info.Flat)
		case !a.Info.Contains(a.Info.Value):
			return fmt.Errorf("axis %s: initial value %d out of range", name, a.Info.Value)
		}
		seenAxis[a.Axis] = true
	}
	return nil
}

func (id Identity) validate() error {
	if id.Name == "" {
		return errors.New("device name is empty")
	}
	if len(id.Name) >= consts.MaxNameSize {
		return fmt.Errorf("device name longer than %d bytes", consts.MaxNameSize-1)
	}
	return nil
}

// 仮想ゲームパッドを表現するインターフェース
type Gamepad interface {
	// Emit はイベント群を一つの SYN_REPORT で区切って書き込む
	Emit(events ...types.Event) error
	// NodePaths はデバイスノードが現れるまで待ってそのパスを返す。一度だけ呼べる
	NodePaths(ctx context.Context, timeout time.Duration) ([]string, error)
	io.Closer
}

// uinputDevice は /dev/uinput に対する操作。テストでは偽物に置き換える
type uinputDevice interface {
	io.Writer
	io.Closer
	ioctl(request uintptr, arg uintptr) error
	ioctlPtr(request uintptr, arg unsafe.Pointer) error
}

type uinputFile struct {
	*os.File
}

func (f uinputFile) ioctl(request uintptr, arg uintptr) error {
	return utils.IOCtl(f.File, request, arg)
}

func (f uinputFile) ioctlPtr(request uintptr, arg unsafe.Pointer) error {
	return utils.IOCtlPtr(f.File, request, arg)
}

type virtualGamepad struct {
	identity   Identity
	dev        uinputDevice
	log        zerolog.Logger
	closed     bool
	enumerated bool
}

// CreateGamepad は uinput で仮想ゲームパッドを作成する
func CreateGamepad(path string, identity Identity, caps Capabilities, logger zerolog.Logger) (Gamepad, error) {
	if err := identity.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceCreation, err)
	}
	if err := caps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceCreation, err)
	}

	f, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return nil, fmt.Errorf("%w: could not open %s: %v", ErrDeviceCreation, path, err)
	}

	return createGamepad(uinputFile{f}, identity, caps, logger)
}

func createGamepad(dev uinputDevice, identity Identity, caps Capabilities, logger zerolog.Logger) (*virtualGamepad, error) {
	if err := setupDevice(dev, identity, caps); err != nil {
		_ = dev.Close()
		if errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
			return nil, fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceCreation, err)
	}

	logger.Info().
		Str("name", identity.Name).
		Int("buttons", len(caps.Buttons)).
		Int("axes", len(caps.Axes)).
		Msg("仮想ゲームパッドを作成しました")

	return &virtualGamepad{identity: identity, dev: dev, log: logger}, nil
}

func setupDevice(dev uinputDevice, identity Identity, caps Capabilities) error {
	// キー入力イベント(EV_KEY)とボタンを登録する
	if len(caps.Buttons) > 0 {
		if err := dev.ioctl(consts.SetEvBit, consts.Key); err != nil {
			return fmt.Errorf("UI_SET_EVBIT EV_KEY: %w", err)
		}
		for _, b := range caps.Buttons {
			if err := dev.ioctl(consts.SetKeyBit, uintptr(b)); err != nil {
				return fmt.Errorf("UI_SET_KEYBIT %s: %w", mapping.CodeName(consts.Key, b), err)
			}
		}
	}

	// 絶対座標入力イベント(EV_ABS)と各軸の校正値を登録する
	if len(caps.Axes) > 0 {
		if err := dev.ioctl(consts.SetEvBit, consts.Abs); err != nil {
			return fmt.Errorf("UI_SET_EVBIT EV_ABS: %w", err)
		}
		for _, a := range caps.Axes {
			name := mapping.CodeName(consts.Abs, a.Axis)
			if err := dev.ioctl(consts.SetAbsBit, uintptr(a.Axis)); err != nil {
				return fmt.Errorf("UI_SET_ABSBIT %s: %w", name, err)
			}
			setup := types.UinputAbsSetup{Code: a.Axis, Info: a.Info}
			if err := dev.ioctlPtr(consts.AbsSetup, unsafe.Pointer(&setup)); err != nil {
				return fmt.Errorf("UI_ABS_SETUP %s: %w", name, err)
			}
		}
	}

	setup := types.UinputSetup{
		ID: types.InputID{
			Bustype: identity.Bustype,
			Vendor:  identity.Vendor,
			Product: identity.Product,
			Version: identity.Version,
		},
		Name: toUinputName([]byte(identity.Name)),
	}
	if err := dev.ioctlPtr(consts.DevSetup, unsafe.Pointer(&setup)); err != nil {
		return fmt.Errorf("UI_DEV_SETUP: %w", err)
	}
	if err := dev.ioctl(consts.DevCreate, 0); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return nil
}

// Emit はイベントと SYN_REPORT を一度の write で書き込む。順序はそのまま保たれる
func (g *virtualGamepad) Emit(events ...types.Event) error {
	if g.closed {
		return ErrClosed
	}
	if len(events) == 0 {
		return nil
	}

	buf := new(bytes.Buffer)
	for _, ev := range events {
		if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
			return fmt.Errorf("%w: encode %v: %v", ErrEmit, ev, err)
		}
	}
	if err := binary.Write(buf, binary.LittleEndian, types.NewEvent(consts.Syn, consts.SynReport, 0)); err != nil {
		return fmt.Errorf("%w: encode SYN_REPORT: %v", ErrEmit, err)
	}

	n, err := g.dev.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmit, err)
	}
	if n != buf.Len() {
		return fmt.Errorf("%w: short write %d/%d bytes", ErrEmit, n, buf.Len())
	}
	return nil
}

// NodePaths は /dev/input 以下のデバイスノード (eventN, jsN) を返す
func (g *virtualGamepad) NodePaths(ctx context.Context, timeout time.Duration) ([]string, error) {
	if g.closed {
		return nil, ErrClosed
	}
	if g.enumerated {
		return nil, ErrNodesEnumerated
	}
	g.enumerated = true

	sysname, err := g.sysName()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names, err := waitForSysfsNodes(ctx, filepath.Join(sysfsInputRoot, sysname))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sysname, err)
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(devInputDir, name))
	}
	if err := WaitForNodes(ctx, paths); err != nil {
		return nil, err
	}
	g.log.Debug().Str("sysname", sysname).Strs("nodes", paths).Msg("デバイスノードを検出しました")
	return paths, nil
}

func (g *virtualGamepad) sysName() (string, error) {
	var buf [consts.SysNameSize]byte
	if err := g.dev.ioctlPtr(consts.GetSysName(len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return "", fmt.Errorf("UI_GET_SYSNAME: %w", err)
	}
	name := string(bytes.TrimRight(buf[:], "\x00"))
	if name == "" {
		return "", errors.New("UI_GET_SYSNAME returned an empty name")
	}
	return name, nil
}

// waitForSysfsNodes は sysfs にデバイスの子ノードが現れるまで待つ
func waitForSysfsNodes(ctx context.Context, dir string) ([]string, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		names, err := listNodeNames(dir)
		if err == nil && len(names) > 0 {
			return names, nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return nil, fmt.Errorf("device nodes did not appear: %w", err)
			}
			return nil, fmt.Errorf("device nodes did not appear: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func listNodeNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "event") || strings.HasPrefix(name, "js") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close はデバイスを破棄する。二度目以降の呼び出しは何もしない
func (g *virtualGamepad) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	destroyErr := g.dev.ioctl(consts.DevDestroy, 0)
	closeErr := g.dev.Close()
	g.log.Info().Str("name", g.identity.Name).Msg("仮想ゲームパッドを破棄しました")
	return errors.Join(destroyErr, closeErr)
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name []byte) (uinputName [consts.MaxNameSize]byte) {
	var fixedSizeName [consts.MaxNameSize]byte
	copy(fixedSizeName[:], name)
	return fixedSizeName
}
