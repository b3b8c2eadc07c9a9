// Package motor drives a dual H-bridge motor controller in phase/enable mode.
package motor

import (
	"errors"
	"fmt"
)

// DutyMax is the largest PWM duty a wheel can be driven with.
const DutyMax = 255

var (
	// ErrInvalidPins is returned when pins are negative or shared.
	ErrInvalidPins = errors.New("invalid pin assignment")
	// ErrMaxMagnitude is returned for a max magnitude outside 1..DutyMax.
	ErrMaxMagnitude = errors.New("max magnitude out of range")
)

// Pin identifies a hardware pin in the platform's numbering scheme.
type Pin int

// Pins holds the pin assignment of the motor controller.
type Pins struct {
	ModeSelect  Pin `json:"mode_select" yaml:"mode_select"`
	LeftEnable  Pin `json:"left_enable" yaml:"left_enable"`
	LeftPhase   Pin `json:"left_phase" yaml:"left_phase"`
	RightEnable Pin `json:"right_enable" yaml:"right_enable"`
	RightPhase  Pin `json:"right_phase" yaml:"right_phase"`
}

// All returns the pins in configuration order.
func (p Pins) All() []Pin {
	return []Pin{p.ModeSelect, p.LeftEnable, p.LeftPhase, p.RightEnable, p.RightPhase}
}

// Validate checks that all pins are non-negative and distinct.
func (p Pins) Validate() error {
	seen := make(map[Pin]bool, 5)
	for _, pin := range p.All() {
		if pin < 0 {
			return fmt.Errorf("%w: negative pin %d", ErrInvalidPins, pin)
		}
		if seen[pin] {
			return fmt.Errorf("%w: pin %d used twice", ErrInvalidPins, pin)
		}
		seen[pin] = true
	}
	return nil
}

// DigitalOutput drives pins high or low.
type DigitalOutput interface {
	ConfigureOutput(pin Pin) error
	DigitalWrite(pin Pin, high bool) error
}

// PWMOutput writes a PWM duty cycle in [0, DutyMax] to a pin.
type PWMOutput interface {
	PWMWrite(pin Pin, duty uint8) error
}

// Outputs is the platform I/O the driver needs.
type Outputs interface {
	DigitalOutput
	PWMOutput
}

// Option configures a Driver.
type Option func(*Driver) error

// WithMaxMagnitude caps the duty written to either wheel.
func WithMaxMagnitude(n int) Option {
	return func(d *Driver) error {
		if n < 1 || n > DutyMax {
			return fmt.Errorf("%w: %d (want 1-%d)", ErrMaxMagnitude, n, DutyMax)
		}
		d.maxMagnitude = n
		return nil
	}
}

// Driver maps signed wheel speeds onto the phase and enable pins of the
// controller. It is not safe for concurrent use.
type Driver struct {
	out          Outputs
	pins         Pins
	maxMagnitude int
}

// NewDriver configures all pins as outputs and selects PH/EN mode.
func NewDriver(out Outputs, pins Pins, opts ...Option) (*Driver, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		out:          out,
		pins:         pins,
		maxMagnitude: DutyMax,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	for _, pin := range pins.All() {
		if err := out.ConfigureOutput(pin); err != nil {
			return nil, fmt.Errorf("configure pin %d: %w", pin, err)
		}
	}

	// High selects PH/EN; low would select IN/IN, which is not supported.
	if err := out.DigitalWrite(pins.ModeSelect, true); err != nil {
		return nil, fmt.Errorf("select mode: %w", err)
	}

	return d, nil
}

// Pins returns the pin assignment.
func (d *Driver) Pins() Pins {
	return d.pins
}

// MaxMagnitude returns the duty ceiling.
func (d *Driver) MaxMagnitude() int {
	return d.maxMagnitude
}

// SetLeftSpeed sets the left wheel. Positive is forward, the magnitude is
// clamped to MaxMagnitude.
func (d *Driver) SetLeftSpeed(speed int) error {
	if err := d.set(d.pins.LeftPhase, d.pins.LeftEnable, speed); err != nil {
		return fmt.Errorf("left: %w", err)
	}
	return nil
}

// SetRightSpeed sets the right wheel.
func (d *Driver) SetRightSpeed(speed int) error {
	if err := d.set(d.pins.RightPhase, d.pins.RightEnable, speed); err != nil {
		return fmt.Errorf("right: %w", err)
	}
	return nil
}

// SetSpeeds sets the left wheel, then the right one. The two updates are
// not atomic.
func (d *Driver) SetSpeeds(left, right int) error {
	if err := d.SetLeftSpeed(left); err != nil {
		return err
	}
	return d.SetRightSpeed(right)
}

// Stop sets both wheels to zero.
func (d *Driver) Stop() error {
	return d.SetSpeeds(0, 0)
}

func (d *Driver) set(phase, enable Pin, speed int) error {
	if err := d.out.DigitalWrite(phase, Forward(speed)); err != nil {
		return fmt.Errorf("phase pin %d: %w", phase, err)
	}
	if err := d.out.PWMWrite(enable, Magnitude(speed, d.maxMagnitude)); err != nil {
		return fmt.Errorf("enable pin %d: %w", enable, err)
	}
	return nil
}

// Forward reports the phase level for speed. Zero counts as reverse.
func Forward(speed int) bool {
	return speed > 0
}

// Magnitude returns |speed| clamped to limit, which is itself capped at
// DutyMax.
func Magnitude(speed, limit int) uint8 {
	limit = max(min(limit, DutyMax), 0)
	if speed < 0 {
		speed = -speed
	}
	// -MinInt overflows back to a negative value.
	if speed > limit || speed < 0 {
		speed = limit
	}
	return uint8(speed)
}
