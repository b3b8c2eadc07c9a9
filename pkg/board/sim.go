package board

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/goocto/balancebot/pkg/motor"
)

// Op is the kind of call recorded by SimBoard.
type Op string

const (
	OpConfigure Op = "configure"
	OpDigital   Op = "digital"
	OpPWM       Op = "pwm"
)

// Event is one call made on a SimBoard.
type Event struct {
	Op   Op
	Pin  motor.Pin
	High bool
	Duty uint8
	Time time.Time
}

// SimBoard records writes in memory instead of touching hardware.
type SimBoard struct {
	mu     sync.Mutex
	events []Event
	levels map[motor.Pin]bool
	duties map[motor.Pin]uint8
	closed bool
}

// NewSim returns an empty simulated board.
func NewSim() *SimBoard {
	return &SimBoard{
		levels: make(map[motor.Pin]bool),
		duties: make(map[motor.Pin]uint8),
	}
}

func (b *SimBoard) record(e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	e.Time = time.Now()
	b.events = append(b.events, e)

	switch e.Op {
	case OpConfigure:
		b.levels[e.Pin] = false
	case OpDigital:
		b.levels[e.Pin] = e.High
	case OpPWM:
		b.duties[e.Pin] = e.Duty
	}

	log.WithFields(log.Fields{
		"op":   e.Op,
		"pin":  e.Pin,
		"high": e.High,
		"duty": e.Duty,
	}).Debug("sim write")
	return nil
}

// ConfigureOutput records the pin as configured and low.
func (b *SimBoard) ConfigureOutput(pin motor.Pin) error {
	return b.record(Event{Op: OpConfigure, Pin: pin})
}

// DigitalWrite records the level.
func (b *SimBoard) DigitalWrite(pin motor.Pin, high bool) error {
	return b.record(Event{Op: OpDigital, Pin: pin, High: high})
}

// PWMWrite records the duty.
func (b *SimBoard) PWMWrite(pin motor.Pin, duty uint8) error {
	return b.record(Event{Op: OpPWM, Pin: pin, Duty: duty})
}

// Events returns a copy of the recorded calls.
func (b *SimBoard) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// Level returns the last digital level of pin and whether it was ever
// configured or written.
func (b *SimBoard) Level(pin motor.Pin) (high, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	high, ok = b.levels[pin]
	return high, ok
}

// Duty returns the last PWM duty written to pin.
func (b *SimBoard) Duty(pin motor.Pin) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duties[pin]
}

// Reset forgets recorded events but keeps pin state.
func (b *SimBoard) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Close makes every later call return ErrClosed, including Close.
func (b *SimBoard) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	return nil
}
