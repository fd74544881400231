package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/char5742/kbdpad/internal/mapping"
)

const envPrefix = "KBDPAD"

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	Keyboard       string        `mapstructure:"keyboard"`
	Uinput         string        `mapstructure:"uinput"`
	Profile        string        `mapstructure:"profile"`
	ProfileFile    string        `mapstructure:"profile-file"`
	WriteProfile   string        `mapstructure:"write-profile"`
	Name           string        `mapstructure:"name"`
	LogLevel       string        `mapstructure:"log-level"`
	Listen         string        `mapstructure:"listen"`
	Passthrough    bool          `mapstructure:"passthrough"`
	FetchRetries   int           `mapstructure:"fetch-retries"`
	EmitPolicy     string        `mapstructure:"emit-policy"`
	NodeTimeout    time.Duration `mapstructure:"node-timeout"`
	ReleaseTimeout time.Duration `mapstructure:"release-timeout"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Keyboard:       "",
		Uinput:         "/dev/uinput",
		Profile:        mapping.DefaultProfile,
		Name:           "Microsoft X-Box 360 pad",
		LogLevel:       "info",
		FetchRetries:   3,
		EmitPolicy:     "continue",
		NodeTimeout:    5 * time.Second,
		ReleaseTimeout: 2 * time.Second,
	}
}

// NewFlagSet はコマンドライン引数の定義を返す
func NewFlagSet(name string) *pflag.FlagSet {
	d := DefaultConfig()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("keyboard", "k", d.Keyboard, "キーボードのデバイスパスまたは /dev/input/by-id の名前 (省略時は最初のキーボード)")
	fs.String("uinput", d.Uinput, "uinput デバイスのパス")
	fs.StringP("profile", "p", d.Profile, fmt.Sprintf("組み込みプロファイル %v", mapping.BuiltinNames()))
	fs.String("profile-file", d.ProfileFile, "TOML形式のプロファイルファイル (--profile より優先)")
	fs.String("write-profile", d.WriteProfile, "選択したプロファイルを指定パスに書き出して終了する")
	fs.String("name", d.Name, "仮想ゲームパッドのデバイス名")
	fs.String("log-level", d.LogLevel, "ログレベル (trace, debug, info, warn, error)")
	fs.String("listen", d.Listen, "状態確認とメトリクス用のHTTPアドレス (例 127.0.0.1:9360)")
	fs.Bool("passthrough", d.Passthrough, "割り当てのないキーを仮想キーボードへ転送する")
	fs.Int("fetch-retries", d.FetchRetries, "キーボードの読み込み失敗を連続で何回まで再試行するか")
	fs.String("emit-policy", d.EmitPolicy, "書き込み失敗時の扱い (continue, fatal)")
	fs.Duration("node-timeout", d.NodeTimeout, "デバイスノードの出現を待つ時間")
	fs.Duration("release-timeout", d.ReleaseTimeout, "専有前にキーが離されるのを待つ時間")
	fs.StringP("config", "c", "", "設定ファイルのパス (指定しない場合はデフォルトパスを使用)")
	return fs
}

// Load は引数、環境変数 (KBDPAD_*)、設定ファイルの順に優先して設定を読み込む
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfgPath := v.GetString("config")
	explicit := cfgPath != ""
	if !explicit {
		if dir, err := GetDefaultConfigDir(); err == nil {
			cfgPath = filepath.Join(dir, "config.toml")
		}
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			// デフォルトパスにファイルがないのは正常
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました %s: %w", cfgPath, err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("設定の解析に失敗しました: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は値の範囲を検査する
func (c *Config) Validate() error {
	if c.FetchRetries < 0 {
		return fmt.Errorf("fetch-retries must not be negative: %d", c.FetchRetries)
	}
	if c.NodeTimeout <= 0 {
		return fmt.Errorf("node-timeout must be positive: %s", c.NodeTimeout)
	}
	if c.ReleaseTimeout < 0 {
		return fmt.Errorf("release-timeout must not be negative: %s", c.ReleaseTimeout)
	}
	if c.Uinput == "" {
		return errors.New("uinput path is empty")
	}
	return nil
}

// GetDefaultConfigDir は設定ファイルを置くディレクトリ ($XDG_CONFIG_HOME/kbdpad) を返す
func GetDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "kbdpad"), nil
}
