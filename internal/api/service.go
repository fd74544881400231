package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/char5742/kbdpad/internal/features"
	"github.com/char5742/kbdpad/internal/mapping"
	"github.com/char5742/kbdpad/internal/metrics"
	"github.com/char5742/kbdpad/internal/translator"
)

// Options はサービスの起動設定
type Options struct {
	Uinput         string
	Identity       features.Identity
	Keyboard       string
	NodeTimeout    time.Duration
	ReleaseTimeout time.Duration
	Passthrough    bool
	FetchRetries   int
	RetryDelay     time.Duration
	EmitPolicy     translator.EmitPolicy
	// Stdout にはデバイスノードのパスを表示する
	Stdout io.Writer
}

// Status は /api/status で返すサービスの状態
type Status struct {
	Running   bool              `json:"running"`
	Profile   string            `json:"profile"`
	Device    string            `json:"device"`
	Nodes     []string          `json:"nodes"`
	Keyboard  *features.Device  `json:"keyboard,omitempty"`
	StartedAt *time.Time        `json:"started_at,omitempty"`
	Stats     metrics.Stats     `json:"stats"`
	Identity  features.Identity `json:"identity"`
}

type forwarder interface {
	translator.Forwarder
	io.Closer
}

// GamepadService は仮想ゲームパッドと専有したキーボードを管理する構造体
type GamepadService struct {
	table   *mapping.Table
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics

	statusMutex sync.RWMutex
	gamepad     features.Gamepad
	keyboard    features.Keyboard
	passthrough forwarder
	nodes       []string
	kbDevice    *features.Device
	running     bool
	startedAt   time.Time

	// OS に触れる処理。テストでは置き換える
	createGamepad     func(path string, id features.Identity, caps features.Capabilities, logger zerolog.Logger) (features.Gamepad, error)
	resolveKeyboard   func(spec string) (string, error)
	openKeyboard      func(path string, releaseTimeout time.Duration, logger zerolog.Logger) (features.Keyboard, error)
	createPassthrough func(path, name string) (forwarder, error)
}

// NewGamepadService は新しいサービスを作成する。デバイスは Start まで作らない
func NewGamepadService(table *mapping.Table, opts Options, m *metrics.Metrics, logger zerolog.Logger) *GamepadService {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if m == nil {
		m = metrics.New()
	}
	return &GamepadService{
		table:             table,
		opts:              opts,
		log:               logger,
		metrics:           m,
		createGamepad:     features.CreateGamepad,
		resolveKeyboard:   features.ResolveKeyboard,
		openKeyboard:      features.OpenKeyboard,
		createPassthrough: func(path, name string) (forwarder, error) { return features.CreatePassthrough(path, name) },
	}
}

// Start は仮想デバイスを作成し、ノードを表示してからキーボードを専有する
//
// 途中で失敗した場合はそれまでに作ったデバイスをすべて解放する。
func (s *GamepadService) Start(ctx context.Context) (err error) {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if s.gamepad != nil {
		return fmt.Errorf("サービスは既に開始されています")
	}
	defer func() {
		if err != nil {
			_ = s.closeLocked()
		}
	}()

	pad, err := s.createGamepad(s.opts.Uinput, s.opts.Identity, features.CapabilitiesFor(s.table), s.log)
	if err != nil {
		return err
	}
	s.gamepad = pad

	nodes, err := pad.NodePaths(ctx, s.opts.NodeTimeout)
	if err != nil {
		return fmt.Errorf("デバイスノードの取得に失敗しました: %w", err)
	}
	s.nodes = nodes
	for _, node := range nodes {
		fmt.Fprintf(s.opts.Stdout, "利用可能: %s\n", node)
	}

	path, err := s.resolveKeyboard(s.opts.Keyboard)
	if err != nil {
		return err
	}
	kb, err := s.openKeyboard(path, s.opts.ReleaseTimeout, s.log)
	if err != nil {
		return err
	}
	s.keyboard = kb
	s.kbDevice = &features.Device{Name: kb.Name(), Path: path}
	s.log.Info().Str("keyboard", kb.Name()).Str("path", path).Msg("使用するキーボード")

	if s.opts.Passthrough {
		pt, err := s.createPassthrough(s.opts.Uinput, features.PassthroughName(s.opts.Identity.Name))
		if err != nil {
			return err
		}
		s.passthrough = pt
	}
	return nil
}

// Run は変換ループを実行する。キーボードが閉じられるか ctx が終わるまで戻らない
func (s *GamepadService) Run(ctx context.Context) error {
	s.statusMutex.Lock()
	if s.gamepad == nil || s.keyboard == nil {
		s.statusMutex.Unlock()
		return fmt.Errorf("サービスは開始されていません")
	}
	if s.running {
		s.statusMutex.Unlock()
		return fmt.Errorf("サービスは既に実行中です")
	}
	opts := []translator.Option{
		translator.WithFetchRetries(s.opts.FetchRetries, s.opts.RetryDelay),
		translator.WithEmitPolicy(s.opts.EmitPolicy),
		translator.WithRecorder(s.metrics),
		translator.WithLogger(s.log),
	}
	if s.passthrough != nil {
		opts = append(opts, translator.WithForwarder(s.passthrough))
	}
	loop := translator.NewLoop(s.keyboard, s.gamepad, translator.New(s.table), opts...)
	s.running = true
	s.startedAt = time.Now()
	s.statusMutex.Unlock()

	s.log.Info().Str("profile", s.table.Name()).Msg("変換を開始しました")
	err := loop.Run(ctx)

	s.statusMutex.Lock()
	s.running = false
	s.statusMutex.Unlock()
	s.log.Info().Msg("変換を停止しました")
	return err
}

// Interrupt はキーボードを閉じてブロック中の読み込みを終わらせる
func (s *GamepadService) Interrupt() {
	s.statusMutex.RLock()
	kb := s.keyboard
	s.statusMutex.RUnlock()
	if kb != nil {
		_ = kb.Close()
	}
}

// Close はキーボードの専有を解除し、仮想デバイスを破棄する。何度呼んでもよい
func (s *GamepadService) Close() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()
	return s.closeLocked()
}

func (s *GamepadService) closeLocked() error {
	var errs []error
	// キーボードを先に解放しないと、押下中のキーがデスクトップ側に残る
	if s.keyboard != nil {
		errs = append(errs, s.keyboard.Close())
		s.keyboard = nil
	}
	if s.passthrough != nil {
		errs = append(errs, s.passthrough.Close())
		s.passthrough = nil
	}
	if s.gamepad != nil {
		errs = append(errs, s.gamepad.Close())
		s.gamepad = nil
	}
	return errors.Join(errs...)
}

// Status は現在の状態を返す
func (s *GamepadService) Status() Status {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()

	st := Status{
		Running:  s.running,
		Profile:  s.table.Name(),
		Device:   s.opts.Identity.Name,
		Nodes:    append([]string{}, s.nodes...),
		Keyboard: s.kbDevice,
		Stats:    s.metrics.Snapshot(),
		Identity: s.opts.Identity,
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		st.StartedAt = &t
	}
	return st
}

// IsRunning はサービスが実行中かどうかを返す
func (s *GamepadService) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.running
}

func (s *GamepadService) Table() *mapping.Table {
	return s.table
}

func (s *GamepadService) Metrics() *metrics.Metrics {
	return s.metrics
}
