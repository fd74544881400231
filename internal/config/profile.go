package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/char5742/kbdpad/internal/consts"
	"github.com/char5742/kbdpad/internal/mapping"
	"github.com/char5742/kbdpad/internal/types"
)

// ProfileFile はプロファイルのTOML表現。コードはすべて名前 (KEY_LEFT, BTN_SOUTH, ABS_X) で書く
type ProfileFile struct {
	Name    string            `toml:"name" json:"name"`
	Buttons []string          `toml:"buttons" json:"buttons"`
	Axes    []AxisConfig      `toml:"axis" json:"axis"`
	Sticks  []StickConfig     `toml:"stick,omitempty" json:"stick,omitempty"`
	AxisMap []AxisEntryConfig `toml:"axis_map,omitempty" json:"axis_map,omitempty"`
	KeyMap  []KeyEntryConfig  `toml:"key_map" json:"key_map"`
}

// AxisConfig は軸の宣言と校正値
type AxisConfig struct {
	Code       string `toml:"code" json:"code"`
	Value      int32  `toml:"value" json:"value"`
	Min        int32  `toml:"min" json:"min"`
	Max        int32  `toml:"max" json:"max"`
	Fuzz       int32  `toml:"fuzz" json:"fuzz"`
	Flat       int32  `toml:"flat" json:"flat"`
	Resolution int32  `toml:"resolution" json:"resolution"`
}

// StickConfig は二つの方向キーで一本の軸を操作する省略記法
type StickConfig struct {
	Negative string `toml:"negative" json:"negative"`
	Positive string `toml:"positive" json:"positive"`
	Axis     string `toml:"axis" json:"axis"`
}

type AxisEntryConfig struct {
	Key      string `toml:"key" json:"key"`
	Value    int32  `toml:"value" json:"value"`
	Axis     string `toml:"axis" json:"axis"`
	Position int32  `toml:"position" json:"position"`
}

type KeyEntryConfig struct {
	Key    string `toml:"key" json:"key"`
	Button string `toml:"button" json:"button"`
}

// LoadProfile はTOMLファイルからプロファイルを読み込む
//
// 表の検証 (重複や範囲外の値) は mapping.New が行う。ここでは名前の解決と未知のキーの検出のみ。
func LoadProfile(path string) (mapping.Profile, error) {
	var pf ProfileFile
	md, err := toml.DecodeFile(path, &pf)
	if err != nil {
		return mapping.Profile{}, fmt.Errorf("プロファイルの読み込みに失敗しました %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return mapping.Profile{}, fmt.Errorf("プロファイルに未知のキーがあります %s: %s", path, strings.Join(keys, ", "))
	}
	if pf.Name == "" {
		pf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	p, err := pf.Profile()
	if err != nil {
		return mapping.Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Profile は名前をコードへ解決して mapping.Profile を組み立てる
func (pf *ProfileFile) Profile() (mapping.Profile, error) {
	p := mapping.Profile{Name: pf.Name}

	for _, name := range pf.Buttons {
		code, err := mapping.ParseCode(consts.Key, name)
		if err != nil {
			return p, fmt.Errorf("buttons: %w", err)
		}
		p.Buttons = append(p.Buttons, code)
	}

	axes := make(map[uint16]mapping.AxisSpec, len(pf.Axes))
	for _, a := range pf.Axes {
		code, err := mapping.ParseCode(consts.Abs, a.Code)
		if err != nil {
			return p, fmt.Errorf("axis: %w", err)
		}
		spec := mapping.AxisSpec{Code: code, Info: types.AbsInfo{
			Value:      a.Value,
			Minimum:    a.Min,
			Maximum:    a.Max,
			Fuzz:       a.Fuzz,
			Flat:       a.Flat,
			Resolution: a.Resolution,
		}}
		axes[code] = spec
		p.Axes = append(p.Axes, spec)
	}

	for _, s := range pf.Sticks {
		neg, err := mapping.ParseCode(consts.Key, s.Negative)
		if err != nil {
			return p, fmt.Errorf("stick: %w", err)
		}
		pos, err := mapping.ParseCode(consts.Key, s.Positive)
		if err != nil {
			return p, fmt.Errorf("stick: %w", err)
		}
		code, err := mapping.ParseCode(consts.Abs, s.Axis)
		if err != nil {
			return p, fmt.Errorf("stick: %w", err)
		}
		spec, ok := axes[code]
		if !ok {
			return p, fmt.Errorf("stick: %w: %s", mapping.ErrUndeclaredAxis, s.Axis)
		}
		p.AxisMap = append(p.AxisMap, mapping.Stick(neg, pos, spec)...)
	}

	for _, e := range pf.AxisMap {
		key, err := mapping.ParseCode(consts.Key, e.Key)
		if err != nil {
			return p, fmt.Errorf("axis_map: %w", err)
		}
		axis, err := mapping.ParseCode(consts.Abs, e.Axis)
		if err != nil {
			return p, fmt.Errorf("axis_map: %w", err)
		}
		p.AxisMap = append(p.AxisMap, mapping.AxisEntry{Key: key, Value: e.Value, Axis: axis, Position: e.Position})
	}

	for _, e := range pf.KeyMap {
		key, err := mapping.ParseCode(consts.Key, e.Key)
		if err != nil {
			return p, fmt.Errorf("key_map: %w", err)
		}
		button, err := mapping.ParseCode(consts.Key, e.Button)
		if err != nil {
			return p, fmt.Errorf("key_map: %w", err)
		}
		p.KeyMap = append(p.KeyMap, mapping.KeyEntry{Key: key, Button: button})
	}
	return p, nil
}

// NewProfileFile はプロファイルを名前付きのTOML表現へ変換する
func NewProfileFile(p mapping.Profile) *ProfileFile {
	pf := &ProfileFile{Name: p.Name}
	for _, b := range p.Buttons {
		pf.Buttons = append(pf.Buttons, mapping.CodeName(consts.Key, b))
	}
	for _, a := range p.Axes {
		pf.Axes = append(pf.Axes, AxisConfig{
			Code:       mapping.CodeName(consts.Abs, a.Code),
			Value:      a.Info.Value,
			Min:        a.Info.Minimum,
			Max:        a.Info.Maximum,
			Fuzz:       a.Info.Fuzz,
			Flat:       a.Info.Flat,
			Resolution: a.Info.Resolution,
		})
	}
	for _, e := range p.AxisMap {
		pf.AxisMap = append(pf.AxisMap, AxisEntryConfig{
			Key:      mapping.CodeName(consts.Key, e.Key),
			Value:    e.Value,
			Axis:     mapping.CodeName(consts.Abs, e.Axis),
			Position: e.Position,
		})
	}
	for _, e := range p.KeyMap {
		pf.KeyMap = append(pf.KeyMap, KeyEntryConfig{
			Key:    mapping.CodeName(consts.Key, e.Key),
			Button: mapping.CodeName(consts.Key, e.Button),
		})
	}
	return pf
}

// SaveProfile はプロファイルをTOMLファイルに保存する
func SaveProfile(path string, p mapping.Profile) error {
	// 設定ディレクトリの作成
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(NewProfileFile(p))
}
