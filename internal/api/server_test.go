package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/kbdpad/internal/config"
	"github.com/char5742/kbdpad/internal/types"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, false)
	h := NewServer("", f.service, zerolog.Nop()).Handler()

	rec := get(t, h, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"idle"}`, rec.Body.String())
}

func TestStatusReportsCounters(t *testing.T) {
	f := newFixture(t, false, []types.Event{key(evdev.KEY_A, 1), key(evdev.KEY_A, 0)})
	require.NoError(t, f.service.Start(context.Background()))
	defer f.service.Close()

	done := make(chan error, 1)
	go func() { done <- f.service.Run(context.Background()) }()
	require.Eventually(t, func() bool {
		return f.service.Metrics().Snapshot().Emitted == 2
	}, time.Second, 5*time.Millisecond)

	h := NewServer("", f.service, zerolog.Nop()).Handler()
	assert.JSONEq(t, `{"status":"ok"}`, get(t, h, "/api/health").Body.String())

	var st Status
	require.NoError(t, json.Unmarshal(get(t, h, "/api/status").Body.Bytes(), &st))
	assert.True(t, st.Running)
	assert.Equal(t, "standard", st.Profile)
	assert.Equal(t, "Microsoft X-Box 360 pad", st.Identity.Name)
	assert.Equal(t, uint16(0x045e), st.Identity.Vendor)
	assert.Equal(t, []string{"/dev/input/event7", "/dev/input/js0"}, st.Nodes)
	assert.Equal(t, uint64(2), st.Stats.Received)
	assert.Equal(t, uint64(2), st.Stats.Emitted)

	metrics := get(t, h, "/metrics").Body.String()
	assert.Contains(t, metrics, "kbdpad_output_events_total 2")
	assert.Contains(t, metrics, `kbdpad_input_events_total{kind="key"} 2`)

	f.service.Interrupt()
	require.NoError(t, <-done)
}

func TestMappingUsesCodeNames(t *testing.T) {
	f := newFixture(t, false)
	h := NewServer("", f.service, zerolog.Nop()).Handler()

	rec := get(t, h, "/api/mapping")
	require.Equal(t, http.StatusOK, rec.Code)

	var pf config.ProfileFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pf))
	assert.Equal(t, "standard", pf.Name)
	assert.Contains(t, pf.Buttons, "BTN_SOUTH")
	assert.Contains(t, pf.KeyMap, config.KeyEntryConfig{Key: "KEY_SPACE", Button: "BTN_SOUTH"})
	assert.Contains(t, pf.AxisMap, config.AxisEntryConfig{Key: "KEY_UP", Value: 1, Axis: "ABS_Y", Position: 0})
	require.Len(t, pf.Axes, 2)
	assert.Equal(t, int32(512), pf.Axes[0].Max)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, false)
	h := NewServer("", f.service, zerolog.Nop()).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeAndStop(t *testing.T) {
	f := newFixture(t, false)
	srv := NewServer("", f.service, zerolog.Nop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/api/health")
		return err == nil
	}, time.Second, 10*time.Millisecond)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"idle"}`, string(body))

	require.NoError(t, srv.Stop(context.Background()))
	assert.NoError(t, <-done)
}
