// Package drive runs the wheel control loop.
package drive

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	DefaultHz       = 50
	DefaultWatchdog = 500 * time.Millisecond
)

// Motors is the pair of wheels the controller drives.
type Motors interface {
	SetSpeeds(left, right int) error
	Stop() error
}

// Duration is a time.Duration written as "500ms" in config files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText accepts anything time.ParseDuration does.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds configuration for the controller.
type Config struct {
	Hz       int      `json:"hz,omitempty" yaml:"hz,omitempty" env:"BALANCEBOT_HZ"`
	Watchdog Duration `json:"watchdog" yaml:"watchdog" env:"BALANCEBOT_WATCHDOG"`         // 0 disables
	Ramp     int      `json:"ramp,omitempty" yaml:"ramp,omitempty" env:"BALANCEBOT_RAMP"` // max change per tick, 0 = unlimited
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Hz:       DefaultHz,
		Watchdog: Duration(DefaultWatchdog),
	}
}

// State is the output applied on one tick.
type State struct {
	Left, Right int
	Timestamp   time.Time
	Error       error
}

// Controller applies the latest commanded wheel speeds at a fixed rate.
type Controller struct {
	motors   Motors
	hz       int
	watchdog time.Duration
	ramp     int

	mu          sync.Mutex
	running     bool
	targetLeft  int
	targetRight int
	lastCommand time.Time
	expired     bool

	// only touched by the loop goroutine
	left, right int

	stateCh chan State
	logCh   chan string
	now     func() time.Time
}

// NewController creates a controller. A zero Hz takes DefaultHz, a zero
// Watchdog disables the watchdog.
func NewController(m Motors, cfg Config) *Controller {
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.Watchdog < 0 {
		cfg.Watchdog = 0
	}
	if cfg.Ramp < 0 {
		cfg.Ramp = 0
	}

	return &Controller{
		motors:   m,
		hz:       cfg.Hz,
		watchdog: time.Duration(cfg.Watchdog),
		ramp:     cfg.Ramp,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
		now:      time.Now,
	}
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Command sets the wheel speeds applied from the next tick on and feeds
// the watchdog.
func (c *Controller) Command(left, right int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.targetLeft, c.targetRight = left, right
	c.lastCommand = c.now()
	if c.expired {
		c.expired = false
		c.log("Watchdog cleared")
	}
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", c.now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the control loop until ctx is done, then stops the motors.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.lastCommand = c.now()
	c.mu.Unlock()

	c.log("Drive started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step()
		}
	}
}

func (c *Controller) target() (left, right int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watchdog > 0 && c.now().Sub(c.lastCommand) > c.watchdog {
		if !c.expired {
			c.expired = true
			c.log("Watchdog expired, stopping")
		}
		return 0, 0
	}
	return c.targetLeft, c.targetRight
}

func (c *Controller) step() {
	left, right := c.target()
	left = slew(c.left, left, c.ramp)
	right = slew(c.right, right, c.ramp)

	if err := c.motors.SetSpeeds(left, right); err != nil {
		c.log("Write error: %v", err)
		c.sendState(State{Left: c.left, Right: c.right, Error: err, Timestamp: c.now()})
		return
	}
	c.left, c.right = left, right

	c.sendState(State{
		Left:      left,
		Right:     right,
		Timestamp: c.now(),
	})
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err := c.motors.Stop(); err != nil {
		c.log("Warning: failed to stop motors: %v", err)
	} else {
		c.log("Motors stopped")
	}
	c.left, c.right = 0, 0
}

// slew moves from cur toward target by at most step. A zero step jumps
// straight to target.
func slew(cur, target, step int) int {
	if step <= 0 {
		return target
	}
	switch {
	case target > cur+step:
		return cur + step
	case target < cur-step:
		return cur - step
	default:
		return target
	}
}

// Mix converts throttle and steering in [-1, 1] into wheel speeds scaled
// to limit. Positive steering turns right.
func Mix(throttle, steering float64, limit int) (left, right int) {
	l := clamp(throttle+steering, -1, 1)
	r := clamp(throttle-steering, -1, 1)
	return int(math.Round(l * float64(limit))), int(math.Round(r * float64(limit)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
