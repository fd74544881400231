package features

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	devInputDir  = "/dev/input"
	byIDDir      = "/dev/input/by-id"
	recheckEvery = 200 * time.Millisecond
)

var ErrNoKeyboard = errors.New("no keyboard device found")

// Device は /dev/input/by-id から見つかった入力デバイス
type Device struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ScanDevices は /dev/input/by-id を走査して接続中のキーボードを返す
func ScanDevices() ([]Device, error) {
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, entry := range entries {
		// event-kbd 以外 (マウス、if00 の重複など) はスキップ
		if !strings.HasSuffix(entry.Name(), "event-kbd") {
			continue
		}
		fullPath := filepath.Join(byIDDir, entry.Name())
		realPath, err := os.Readlink(fullPath)
		if err != nil {
			continue
		}

		// 絶対パスを構築
		absPath := realPath
		if !filepath.IsAbs(realPath) {
			absPath = filepath.Join(devInputDir, filepath.Base(realPath))
		}
		devices = append(devices, Device{Name: entry.Name(), Path: absPath})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

// ResolveKeyboard はキーボードの指定をデバイスファイルのパスに解決する
//
// 指定はパス、by-id の名前、またはその一部。空の場合は最初に見つかったキーボードを使う。
func ResolveKeyboard(spec string) (string, error) {
	if strings.ContainsRune(spec, os.PathSeparator) {
		if _, err := os.Stat(spec); err != nil {
			return "", err
		}
		return spec, nil
	}

	devices, err := ScanDevices()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoKeyboard, err)
	}
	for _, dev := range devices {
		if spec == "" || dev.Name == spec || strings.Contains(dev.Name, spec) {
			return dev.Path, nil
		}
	}
	if spec == "" {
		return "", ErrNoKeyboard
	}
	return "", fmt.Errorf("%w: %q", ErrNoKeyboard, spec)
}

// WaitForNodes は fsnotify でディレクトリを監視し、すべてのパスが存在するまで待つ
func WaitForNodes(ctx context.Context, paths []string) error {
	if len(missing(paths)) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer watcher.Close()

	dirs := make(map[string]bool)
	for _, p := range paths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("could not watch %s: %w", dir, err)
		}
	}

	// 監視開始までに作られたノードを拾うため、定期的にも確認する
	ticker := time.NewTicker(recheckEvery)
	defer ticker.Stop()

	for {
		pending := missing(paths)
		if len(pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", strings.Join(pending, ", "), ctx.Err())
		case _, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			return fmt.Errorf("watching device nodes: %w", err)
		case <-ticker.C:
		}
	}
}

func missing(paths []string) []string {
	var pending []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			pending = append(pending, p)
		}
	}
	return pending
}
