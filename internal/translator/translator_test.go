package translator

import (
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/kbdpad/internal/consts"
	"github.com/char5742/kbdpad/internal/mapping"
	"github.com/char5742/kbdpad/internal/types"
)

func standardTranslator(t *testing.T) (*Translator, *mapping.Table) {
	t.Helper()
	p, err := mapping.Builtin("standard")
	require.NoError(t, err)
	table, err := mapping.New(p)
	require.NoError(t, err)
	return New(table), table
}

func key(code uint16, value int32) types.Event {
	return types.NewEvent(consts.Key, code, value)
}

func TestTranslateScenarios(t *testing.T) {
	tr, _ := standardTranslator(t)

	tests := []struct {
		name string
		in   types.Event
		want []types.Event
	}{
		{
			name: "left pressed moves X to minimum",
			in:   key(evdev.KEY_LEFT, 1),
			want: []types.Event{types.NewEvent(consts.Abs, consts.AbsX, 0)},
		},
		{
			name: "left released centers X",
			in:   key(evdev.KEY_LEFT, 0),
			want: []types.Event{types.NewEvent(consts.Abs, consts.AbsX, 256)},
		},
		{
			name: "A pressed",
			in:   key(evdev.KEY_A, 1),
			want: []types.Event{types.NewEvent(consts.Key, consts.BtnSouth, 1)},
		},
		{
			name: "A released",
			in:   key(evdev.KEY_A, 0),
			want: []types.Event{types.NewEvent(consts.Key, consts.BtnSouth, 0)},
		},
		{
			name: "A repeat is passed through",
			in:   key(evdev.KEY_A, 2),
			want: []types.Event{types.NewEvent(consts.Key, consts.BtnSouth, 2)},
		},
		{
			name: "unmapped key",
			in:   key(evdev.KEY_F1, 1),
			want: nil,
		},
		{
			name: "sync is ignored",
			in:   types.NewEvent(consts.Syn, consts.SynReport, 0),
			want: nil,
		},
		{
			name: "scan code is ignored",
			in:   types.NewEvent(consts.Msc, 4, evdev.KEY_A),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Translate(tt.in))
		})
	}
}

func TestAliasedKeysProduceSameButton(t *testing.T) {
	tr, _ := standardTranslator(t)

	for _, value := range []int32{0, 1, 2} {
		a := tr.Translate(key(evdev.KEY_A, value))
		space := tr.Translate(key(evdev.KEY_SPACE, value))
		require.Len(t, a, 1)
		assert.Equal(t, a, space)
		assert.Equal(t, types.NewEvent(consts.Key, consts.BtnSouth, value), a[0])
	}
}

func TestEveryAxisEntryYieldsExactlyOneAxisEvent(t *testing.T) {
	tr, table := standardTranslator(t)

	for _, e := range table.AxisEntries() {
		out := tr.Translate(key(e.Key, e.Value))
		var axes []types.Event
		for _, ev := range out {
			if ev.Type == consts.Abs {
				axes = append(axes, ev)
			}
		}
		require.Len(t, axes, 1, "%s value %d", mapping.CodeName(consts.Key, e.Key), e.Value)
		assert.Equal(t, e.Axis, axes[0].Code)
		assert.Equal(t, e.Position, axes[0].Value)
	}
}

func TestEveryKeyEntryPreservesValue(t *testing.T) {
	tr, table := standardTranslator(t)

	for _, e := range table.KeyEntries() {
		for _, value := range []int32{0, 1, 2} {
			out := tr.Translate(key(e.Key, value))
			var keys []types.Event
			for _, ev := range out {
				if ev.Type == consts.Key {
					keys = append(keys, ev)
				}
			}
			require.Len(t, keys, 1)
			assert.Equal(t, e.Button, keys[0].Code)
			assert.Equal(t, value, keys[0].Value)
		}
	}
}

func TestReleaseCentersRegardlessOfHistory(t *testing.T) {
	tr, _ := standardTranslator(t)

	sequences := [][]types.Event{
		{key(evdev.KEY_LEFT, 1), key(evdev.KEY_LEFT, 2)},
		{key(evdev.KEY_RIGHT, 1), key(evdev.KEY_LEFT, 1)},
		{key(evdev.KEY_LEFT, 1), key(evdev.KEY_RIGHT, 1), key(evdev.KEY_RIGHT, 0)},
		{},
	}
	for _, seq := range sequences {
		for _, ev := range seq {
			tr.Translate(ev)
		}
		for _, code := range []uint16{evdev.KEY_LEFT, evdev.KEY_RIGHT} {
			out := tr.Translate(key(code, 0))
			require.Len(t, out, 1)
			assert.Equal(t, types.NewEvent(consts.Abs, consts.AbsX, 256), out[0])
		}
	}
}

func TestOpposingKeysAreLastWriteWins(t *testing.T) {
	tr, _ := standardTranslator(t)

	tr.Translate(key(evdev.KEY_LEFT, 1))
	out := tr.Translate(key(evdev.KEY_RIGHT, 1))
	assert.Equal(t, []types.Event{types.NewEvent(consts.Abs, consts.AbsX, 512)}, out)
}

type bothMapper struct{}

func (bothMapper) LookupAxis(key uint16, value int32) (mapping.AxisTarget, bool) {
	return mapping.AxisTarget{Axis: consts.AbsY, Position: 7}, true
}

func (bothMapper) LookupKey(key uint16) (uint16, bool) {
	return consts.BtnStart, true
}

func TestAxisEventPrecedesKeyEvent(t *testing.T) {
	out := New(bothMapper{}).Translate(key(evdev.KEY_UP, 1))
	assert.Equal(t, []types.Event{
		types.NewEvent(consts.Abs, consts.AbsY, 7),
		types.NewEvent(consts.Key, consts.BtnStart, 1),
	}, out)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindKey, Classify(key(evdev.KEY_A, 1)))
	assert.Equal(t, KindSync, Classify(types.NewEvent(consts.Syn, 0, 0)))
	assert.Equal(t, KindOther, Classify(types.NewEvent(consts.Msc, 4, 30)))
	assert.Equal(t, KindOther, Classify(types.NewEvent(consts.Rel, 0, 1)))
	assert.Equal(t, "key", KindKey.String())
}
