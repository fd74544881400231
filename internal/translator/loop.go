package translator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/char5742/kbdpad/internal/types"
)

var ErrFetch = errors.New("failed to read keyboard events")

// Source は物理キーボードのイベント列。ReadEvents は次の塊が届くまでブロックする
type Source interface {
	ReadEvents() ([]types.Event, error)
}

// Sink は仮想デバイスへの書き込み先
type Sink interface {
	Emit(events ...types.Event) error
}

// Forwarder は変換結果がなかったキーイベントの転送先
type Forwarder interface {
	Forward(ev types.Event) error
}

// Recorder はループの統計を受け取る
type Recorder interface {
	Received(kind Kind)
	Emitted(events int)
	EmitFailed()
	FetchFailed()
	Forwarded()
}

type nopRecorder struct{}

func (nopRecorder) Received(Kind) {}
func (nopRecorder) Emitted(int) {}
func (nopRecorder) EmitFailed() {}
func (nopRecorder) FetchFailed() {}
func (nopRecorder) Forwarded() {}

// EmitPolicy は書き込み失敗時の扱い
type EmitPolicy int

const (
	EmitContinue EmitPolicy = iota // ログに残してイベント群を捨てる
	EmitFatal                      // ループを終了する
)

// ParseEmitPolicy は "continue" または "fatal" を解釈する
func ParseEmitPolicy(s string) (EmitPolicy, error) {
	switch strings.ToLower(s) {
	case "continue", "":
		return EmitContinue, nil
	case "fatal":
		return EmitFatal, nil
	default:
		return EmitContinue, fmt.Errorf("unknown emit policy %q", s)
	}
}

func (p EmitPolicy) String() string {
	if p == EmitFatal {
		return "fatal"
	}
	return "continue"
}

// Loop は物理イベントを読み込み、変換し、書き込む単一スレッドのループ
type Loop struct {
	source     Source
	sink       Sink
	translator *Translator
	forwarder  Forwarder
	recorder   Recorder
	log        zerolog.Logger

	emitPolicy   EmitPolicy
	fetchRetries int
	retryDelay   time.Duration
}

type Option func(*Loop)

// WithFetchRetries は連続した読み込み失敗を何回まで再試行するかを設定する
func WithFetchRetries(retries int, delay time.Duration) Option {
	return func(l *Loop) {
		l.fetchRetries = retries
		l.retryDelay = delay
	}
}

func WithEmitPolicy(p EmitPolicy) Option {
	return func(l *Loop) { l.emitPolicy = p }
}

func WithForwarder(f Forwarder) Option {
	return func(l *Loop) { l.forwarder = f }
}

func WithRecorder(r Recorder) Option {
	return func(l *Loop) { l.recorder = r }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) { l.log = logger }
}

func NewLoop(source Source, sink Sink, tr *Translator, opts ...Option) *Loop {
	l := &Loop{
		source:       source,
		sink:         sink,
		translator:   tr,
		recorder:     nopRecorder{},
		log:          zerolog.Nop(),
		emitPolicy:   EmitContinue,
		fetchRetries: 3,
		retryDelay:   100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run はソースが終了するまでループを回す
//
// io.EOF で nil を返す。ctx はイベント群の間でのみ確認されるため、
// ブロック中の読み込みを止めるには呼び出し側でソースを閉じる。
func (l *Loop) Run(ctx context.Context) error {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := l.source.ReadEvents()
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.log.Info().Msg("キーボードの入力が終了しました")
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			failures++
			l.recorder.FetchFailed()
			if failures > l.fetchRetries {
				return fmt.Errorf("%w: %d consecutive failures: %v", ErrFetch, failures, err)
			}
			l.log.Warn().Err(err).Int("attempt", failures).Msg("キーボードの読み込みに失敗しました。再試行します")
			if err := sleep(ctx, l.retryDelay); err != nil {
				return err
			}
			continue
		}
		failures = 0

		for _, ev := range batch {
			if err := l.handle(ev); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) handle(ev types.Event) error {
	kind := Classify(ev)
	l.recorder.Received(kind)

	out := l.translator.Translate(ev)
	if len(out) == 0 {
		if kind == KindKey {
			l.forward(ev)
		} else if kind == KindOther {
			l.log.Trace().Stringer("event", ev).Msg("キー以外のイベントを無視しました")
		}
		return nil
	}

	if err := l.sink.Emit(out...); err != nil {
		l.recorder.EmitFailed()
		if l.emitPolicy == EmitFatal {
			return fmt.Errorf("emit for %v: %w", ev, err)
		}
		l.log.Warn().Err(err).Stringer("event", ev).Msg("イベントの書き込みに失敗しました。破棄します")
		return nil
	}
	l.recorder.Emitted(len(out))
	return nil
}

func (l *Loop) forward(ev types.Event) {
	if l.forwarder == nil {
		return
	}
	if err := l.forwarder.Forward(ev); err != nil {
		l.log.Warn().Err(err).Stringer("event", ev).Msg("キーの転送に失敗しました")
		return
	}
	l.recorder.Forwarded()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
