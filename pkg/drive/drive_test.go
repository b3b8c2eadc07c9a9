package drive

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type speeds struct{ left, right int }

type fakeMotors struct {
	mu      sync.Mutex
	applied []speeds
	stops   int
	err     error
}

func (m *fakeMotors) SetSpeeds(left, right int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.applied = append(m.applied, speeds{left, right})
	return nil
}

func (m *fakeMotors) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return nil
}

func (m *fakeMotors) last() speeds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied[len(m.applied)-1]
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestController(cfg Config) (*Controller, *fakeMotors, *clock) {
	m := &fakeMotors{}
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewController(m, cfg)
	c.now = clk.now
	return c, m, clk
}

func TestNewController_Defaults(t *testing.T) {
	c := NewController(&fakeMotors{}, Config{Watchdog: -1, Ramp: -3})
	assert.Equal(t, DefaultHz, c.Hz())
	assert.Zero(t, c.watchdog)
	assert.Zero(t, c.ramp)
}

func TestController_AppliesCommand(t *testing.T) {
	c, m, _ := newTestController(Config{})

	c.Command(120, -40)
	c.step()

	assert.Equal(t, speeds{120, -40}, m.last())
	state := <-c.States()
	assert.Equal(t, 120, state.Left)
	assert.Equal(t, -40, state.Right)
	assert.NoError(t, state.Error)
}

func TestController_Watchdog(t *testing.T) {
	c, m, clk := newTestController(Config{Watchdog: Duration(500 * time.Millisecond)})

	c.Command(100, 100)
	clk.advance(400 * time.Millisecond)
	c.step()
	assert.Equal(t, speeds{100, 100}, m.last())

	clk.advance(200 * time.Millisecond)
	c.step()
	assert.Equal(t, speeds{0, 0}, m.last())

	// A fresh command clears the watchdog
	c.Command(50, 60)
	c.step()
	assert.Equal(t, speeds{50, 60}, m.last())

	var logs []string
	for len(c.logCh) > 0 {
		logs = append(logs, <-c.Logs())
	}
	require.Len(t, logs, 2)
	assert.Contains(t, logs[0], "Watchdog expired")
	assert.Contains(t, logs[1], "Watchdog cleared")
}

func TestController_WatchdogDisabled(t *testing.T) {
	c, m, clk := newTestController(Config{})

	c.Command(80, 80)
	clk.advance(time.Hour)
	c.step()
	assert.Equal(t, speeds{80, 80}, m.last())
}

func TestController_Ramp(t *testing.T) {
	c, m, _ := newTestController(Config{Ramp: 30})

	c.Command(100, -70)
	var got []speeds
	for i := 0; i < 5; i++ {
		c.step()
		got = append(got, m.last())
	}

	assert.Equal(t, []speeds{
		{30, -30},
		{60, -60},
		{90, -70},
		{100, -70},
		{100, -70},
	}, got)
}

func TestController_WriteErrorKeepsLastOutput(t *testing.T) {
	c, m, _ := newTestController(Config{Ramp: 10})

	c.Command(50, 50)
	c.step()
	<-c.States()

	m.err = errors.New("bus fault")
	c.step()
	state := <-c.States()
	assert.ErrorIs(t, state.Error, m.err)
	assert.Equal(t, 10, state.Left)
	assert.Equal(t, 10, c.left)
}

func TestController_StartStopsOnCancel(t *testing.T) {
	m := &fakeMotors{}
	c := NewController(m, Config{Hz: 200})
	c.Command(10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.applied) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("controller did not stop")
	}
	assert.Equal(t, 1, m.stops)
}

func TestController_StartTwice(t *testing.T) {
	c := NewController(&fakeMotors{}, Config{})
	c.running = true
	assert.Error(t, c.Start(context.Background()))
}

func TestMix(t *testing.T) {
	tests := []struct {
		throttle, steering float64
		left, right        int
	}{
		{0, 0, 0, 0},
		{1, 0, 255, 255},
		{-1, 0, -255, -255},
		{0, 1, 255, -255},
		{0, -0.5, -128, 128},
		{1, 1, 255, 0},
		{0.5, 0.25, 191, 64},
	}

	for _, tt := range tests {
		left, right := Mix(tt.throttle, tt.steering, 255)
		assert.Equal(t, tt.left, left, "Mix(%v, %v) left", tt.throttle, tt.steering)
		assert.Equal(t, tt.right, right, "Mix(%v, %v) right", tt.throttle, tt.steering)
	}
}

func TestDuration_JSON(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"hz":20,"watchdog":"250ms"}`), &cfg))
	assert.Equal(t, Duration(250*time.Millisecond), cfg.Watchdog)

	data, err := json.Marshal(DefaultConfig())
	require.NoError(t, err)
	assert.JSONEq(t, `{"hz":50,"watchdog":"500ms"}`, string(data))
}

func TestDuration_ZeroIsWritten(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Watchdog = 0

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hz":50,"watchdog":"0s"}`, string(data))

	loaded := DefaultConfig()
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Zero(t, loaded.Watchdog)
}
