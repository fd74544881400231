package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/char5742/kbdpad/internal/api"
	"github.com/char5742/kbdpad/internal/config"
	"github.com/char5742/kbdpad/internal/features"
	"github.com/char5742/kbdpad/internal/logging"
	"github.com/char5742/kbdpad/internal/mapping"
	"github.com/char5742/kbdpad/internal/metrics"
	"github.com/char5742/kbdpad/internal/translator"
)

const retryDelay = 100 * time.Millisecond

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// コマンドライン引数の解析
	fs := config.NewFlagSet("kbdpad")
	fs.SetOutput(stderr)
	cfg, err := config.Load(fs, args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "設定の読み込みに失敗しました: %v\n", err)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	profile, err := loadProfile(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("プロファイルの読み込みに失敗しました")
		return 2
	}
	table, err := mapping.New(profile)
	if err != nil {
		logger.Error().Err(err).Str("profile", profile.Name).Msg("マッピングテーブルが不正です")
		return 2
	}

	if cfg.WriteProfile != "" {
		if err := config.SaveProfile(cfg.WriteProfile, table.Profile()); err != nil {
			logger.Error().Err(err).Str("path", cfg.WriteProfile).Msg("プロファイルの保存に失敗しました")
			return 1
		}
		fmt.Fprintf(stdout, "プロファイルを保存しました: %s\n", cfg.WriteProfile)
		return 0
	}

	policy, err := translator.ParseEmitPolicy(cfg.EmitPolicy)
	if err != nil {
		logger.Error().Err(err).Msg("emit-policy が不正です")
		return 2
	}

	identity := features.DefaultIdentity
	identity.Name = cfg.Name

	m := metrics.New()
	service := api.NewGamepadService(table, api.Options{
		Uinput:         cfg.Uinput,
		Identity:       identity,
		Keyboard:       cfg.Keyboard,
		NodeTimeout:    cfg.NodeTimeout,
		ReleaseTimeout: cfg.ReleaseTimeout,
		Passthrough:    cfg.Passthrough,
		FetchRetries:   cfg.FetchRetries,
		RetryDelay:     retryDelay,
		EmitPolicy:     policy,
		Stdout:         stdout,
	}, m, logging.Subsystem(logger, "gamepad"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := service.Start(ctx); err != nil {
		reportStartError(logger, cfg, err)
		return 1
	}
	defer func() {
		if err := service.Close(); err != nil {
			logger.Warn().Err(err).Msg("デバイスの解放に失敗しました")
		}
	}()

	if cfg.Listen != "" {
		server := api.NewServer(cfg.Listen, service, logging.Subsystem(logger, "http"))
		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Str("listen", cfg.Listen).Msg("HTTPサーバーの起動に失敗しました")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	// シグナルを受けたらキーボードを閉じ、ブロック中の読み込みを終わらせる
	go func() {
		<-ctx.Done()
		service.Interrupt()
	}()

	err = service.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		logger.Info().Msg("シャットダウンします...")
		return 0
	default:
		logger.Error().Err(err).Msg("変換ループが異常終了しました")
		return 1
	}
}

// loadProfile は --profile-file があればそれを、なければ組み込みプロファイルを返す
func loadProfile(cfg *config.Config) (mapping.Profile, error) {
	if cfg.ProfileFile != "" {
		return config.LoadProfile(cfg.ProfileFile)
	}
	return mapping.Builtin(cfg.Profile)
}

func reportStartError(logger zerolog.Logger, cfg *config.Config, err error) {
	ev := logger.Error().Err(err).Str("uinput", cfg.Uinput)
	switch {
	case errors.Is(err, features.ErrPermission):
		ev.Msg("仮想デバイスを作成する権限がありません。root で実行するか、uinput グループに所属してください")
	case errors.Is(err, features.ErrNoKeyboard):
		ev.Str("keyboard", cfg.Keyboard).Msg("キーボードが見つかりませんでした。--keyboard で指定してください")
	case errors.Is(err, features.ErrDeviceCreation):
		ev.Msg("仮想デバイスの作成に失敗しました")
	default:
		ev.Msg("サービスの起動に失敗しました")
	}
}
