package mapping

import (
	"math"
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/kbdpad/internal/consts"
	"github.com/char5742/kbdpad/internal/types"
)

func TestBuiltinProfilesAreValid(t *testing.T) {
	for _, name := range BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			p, err := Builtin(name)
			require.NoError(t, err)
			table, err := New(p)
			require.NoError(t, err)
			assert.Equal(t, name, table.Name())
			assert.NotEmpty(t, table.Buttons())
			assert.NotEmpty(t, table.Axes())
		})
	}
}

func TestUnknownBuiltin(t *testing.T) {
	_, err := Builtin("arcade")
	assert.Error(t, err)
}

func TestLookupAxis(t *testing.T) {
	table := MustNew(standardProfile())

	target, ok := table.LookupAxis(evdev.KEY_LEFT, consts.KeyPressed)
	require.True(t, ok)
	assert.Equal(t, AxisTarget{Axis: consts.AbsX, Position: 0}, target)

	target, ok = table.LookupAxis(evdev.KEY_LEFT, consts.KeyReleased)
	require.True(t, ok)
	assert.Equal(t, AxisTarget{Axis: consts.AbsX, Position: 256}, target)

	target, ok = table.LookupAxis(evdev.KEY_DOWN, consts.KeyPressed)
	require.True(t, ok)
	assert.Equal(t, AxisTarget{Axis: consts.AbsY, Position: 512}, target)

	_, ok = table.LookupAxis(evdev.KEY_LEFT, consts.KeyRepeat)
	assert.False(t, ok, "repeat keeps the axis where the press put it")

	_, ok = table.LookupAxis(evdev.KEY_A, consts.KeyPressed)
	assert.False(t, ok)
}

func TestLookupKeyAliases(t *testing.T) {
	table := MustNew(standardProfile())

	for _, key := range []uint16{evdev.KEY_A, evdev.KEY_SPACE} {
		button, ok := table.LookupKey(key)
		require.True(t, ok)
		assert.Equal(t, uint16(consts.BtnSouth), button)
	}

	_, ok := table.LookupKey(evdev.KEY_F1)
	assert.False(t, ok)
}

func TestReleaseAlwaysCentersAxis(t *testing.T) {
	for _, name := range BuiltinNames() {
		p, err := Builtin(name)
		require.NoError(t, err)
		table := MustNew(p)

		centers := map[uint16]int32{}
		for _, a := range table.Axes() {
			centers[a.Code] = a.Info.Center()
		}
		for _, e := range table.AxisEntries() {
			if e.Value == consts.KeyReleased {
				assert.Equal(t, centers[e.Axis], e.Position, "%s: %s", name, CodeName(consts.Key, e.Key))
			}
		}
	}
}

func TestNewRejectsInvalidProfiles(t *testing.T) {
	badRange := stickX
	badRange.Info.Minimum = 512
	badRange.Info.Maximum = 512

	tests := []struct {
		name    string
		profile Profile
		want    error
	}{
		{
			name: "duplicate transition",
			profile: Profile{
				Axes: []AxisSpec{stickX},
				AxisMap: []AxisEntry{
					{Key: evdev.KEY_LEFT, Value: 1, Axis: consts.AbsX, Position: 0},
					{Key: evdev.KEY_LEFT, Value: 1, Axis: consts.AbsX, Position: 512},
				},
			},
			want: ErrDuplicateTransition,
		},
		{
			name: "duplicate key",
			profile: Profile{
				Buttons: []uint16{consts.BtnSouth, consts.BtnEast},
				KeyMap: []KeyEntry{
					{Key: evdev.KEY_A, Button: consts.BtnSouth},
					{Key: evdev.KEY_A, Button: consts.BtnEast},
				},
			},
			want: ErrDuplicateKey,
		},
		{
			name:    "duplicate button",
			profile: Profile{Buttons: []uint16{consts.BtnSouth, consts.BtnSouth}},
			want:    ErrDuplicateCapability,
		},
		{
			name:    "duplicate axis",
			profile: Profile{Axes: []AxisSpec{stickX, stickX}},
			want:    ErrDuplicateCapability,
		},
		{
			name:    "min not below max",
			profile: Profile{Axes: []AxisSpec{badRange}},
			want:    ErrInvalidRange,
		},
		{
			name: "position out of range",
			profile: Profile{
				Axes:    []AxisSpec{stickX},
				AxisMap: []AxisEntry{{Key: evdev.KEY_LEFT, Value: 1, Axis: consts.AbsX, Position: -1}},
			},
			want: ErrOutOfRange,
		},
		{
			name: "release off center",
			profile: Profile{
				Axes:    []AxisSpec{stickX},
				AxisMap: []AxisEntry{{Key: evdev.KEY_LEFT, Value: 0, Axis: consts.AbsX, Position: 0}},
			},
			want: ErrNotNeutral,
		},
		{
			name: "undeclared axis",
			profile: Profile{
				Axes:    []AxisSpec{stickX},
				AxisMap: Direction(evdev.KEY_UP, stickY, 0),
			},
			want: ErrUndeclaredAxis,
		},
		{
			name: "undeclared button",
			profile: Profile{
				Buttons: []uint16{consts.BtnSouth},
				KeyMap:  []KeyEntry{{Key: evdev.KEY_S, Button: consts.BtnEast}},
			},
			want: ErrUndeclaredButton,
		},
		{
			name: "press without release",
			profile: Profile{
				Axes:    []AxisSpec{stickX},
				AxisMap: []AxisEntry{{Key: evdev.KEY_LEFT, Value: 1, Axis: consts.AbsX, Position: 0}},
			},
			want: ErrNoRelease,
		},
		{
			name: "repeat without release",
			profile: Profile{
				Axes:    []AxisSpec{stickX},
				AxisMap: []AxisEntry{{Key: evdev.KEY_LEFT, Value: 2, Axis: consts.AbsX, Position: 0}},
			},
			want: ErrNoRelease,
		},
		{
			name: "release recenters another axis",
			profile: Profile{
				Axes: []AxisSpec{stickX, stickY},
				AxisMap: []AxisEntry{
					{Key: evdev.KEY_LEFT, Value: 1, Axis: consts.AbsX, Position: 0},
					{Key: evdev.KEY_LEFT, Value: 0, Axis: consts.AbsY, Position: 256},
				},
			},
			want: ErrNoRelease,
		},
		{
			name: "invalid value",
			profile: Profile{
				Axes:    []AxisSpec{stickX},
				AxisMap: []AxisEntry{{Key: evdev.KEY_LEFT, Value: 3, Axis: consts.AbsX, Position: 0}},
			},
			want: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.profile)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTableIsNotAliasedToProfile(t *testing.T) {
	p := minimalProfile()
	table := MustNew(p)

	p.Buttons[0] = consts.BtnMode
	p.Axes[0].Info.Maximum = 1

	assert.Equal(t, uint16(consts.BtnSouth), table.Buttons()[0])
	assert.Equal(t, int32(512), table.Axes()[0].Info.Maximum)

	buttons := table.Buttons()
	buttons[0] = consts.BtnMode
	assert.Equal(t, uint16(consts.BtnSouth), table.Buttons()[0])
}

func TestProfileRoundTrip(t *testing.T) {
	table := MustNew(fullProfile())
	again, err := New(table.Profile())
	require.NoError(t, err)
	assert.Equal(t, table.AxisEntries(), again.AxisEntries())
	assert.Equal(t, table.KeyEntries(), again.KeyEntries())
}

func TestStickOnFullInt32Range(t *testing.T) {
	wide := AxisSpec{Code: consts.AbsX, Info: types.AbsInfo{Minimum: math.MinInt32, Maximum: math.MaxInt32}}
	table, err := New(Profile{Axes: []AxisSpec{wide}, AxisMap: Stick(evdev.KEY_LEFT, evdev.KEY_RIGHT, wide)})
	require.NoError(t, err)

	press, ok := table.LookupAxis(evdev.KEY_LEFT, 1)
	require.True(t, ok)
	assert.Equal(t, int32(math.MinInt32), press.Position)

	release, ok := table.LookupAxis(evdev.KEY_LEFT, 0)
	require.True(t, ok)
	assert.Equal(t, int32(-1), release.Position)
}

func TestStickEntries(t *testing.T) {
	axis := AxisSpec{Code: consts.AbsX, Info: types.AbsInfo{Minimum: -100, Maximum: 100}}
	entries := Stick(evdev.KEY_LEFT, evdev.KEY_RIGHT, axis)
	assert.Equal(t, []AxisEntry{
		{Key: evdev.KEY_LEFT, Value: 1, Axis: consts.AbsX, Position: -100},
		{Key: evdev.KEY_LEFT, Value: 0, Axis: consts.AbsX, Position: 0},
		{Key: evdev.KEY_RIGHT, Value: 1, Axis: consts.AbsX, Position: 100},
		{Key: evdev.KEY_RIGHT, Value: 0, Axis: consts.AbsX, Position: 0},
	}, entries)
}
