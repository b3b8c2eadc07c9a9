package board

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/goocto/balancebot/pkg/motor"
)

// PinLookup resolves a pin name to a periph pin, nil if unknown.
type PinLookup func(name string) gpio.PinIO

// PeriphBoard drives the pins through periph.io.
type PeriphBoard struct {
	lookup PinLookup
	freq   physic.Frequency
	pins   map[motor.Pin]gpio.PinIO
}

// OpenPeriph initializes the periph host drivers.
func OpenPeriph(freqHz int) (*PeriphBoard, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	log.WithField("drivers", len(state.Loaded)).Info("periph host initialized")
	return NewPeriph(gpioreg.ByName, freqHz), nil
}

// NewPeriph builds a board resolving pins through lookup.
func NewPeriph(lookup PinLookup, freqHz int) *PeriphBoard {
	if freqHz <= 0 {
		freqHz = DefaultPWMFrequency
	}
	return &PeriphBoard{
		lookup: lookup,
		freq:   physic.Frequency(freqHz) * physic.Hertz,
		pins:   make(map[motor.Pin]gpio.PinIO),
	}
}

func (b *PeriphBoard) pin(pin motor.Pin) (gpio.PinIO, error) {
	if p, ok := b.pins[pin]; ok {
		return p, nil
	}
	p := b.lookup(strconv.Itoa(int(pin)))
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	b.pins[pin] = p
	return p, nil
}

// ConfigureOutput drives the pin low.
func (b *PeriphBoard) ConfigureOutput(pin motor.Pin) error {
	p, err := b.pin(pin)
	if err != nil {
		return err
	}
	return p.Out(gpio.Low)
}

// DigitalWrite drives the pin high or low.
func (b *PeriphBoard) DigitalWrite(pin motor.Pin, high bool) error {
	p, err := b.pin(pin)
	if err != nil {
		return err
	}
	return p.Out(gpio.Level(high))
}

// PWMWrite scales duty to gpio.DutyMax and runs it at the board frequency.
func (b *PeriphBoard) PWMWrite(pin motor.Pin, duty uint8) error {
	p, err := b.pin(pin)
	if err != nil {
		return err
	}
	return p.PWM(periphDuty(duty), b.freq)
}

// Close halts every pin the board touched.
func (b *PeriphBoard) Close() error {
	var err error
	for _, p := range b.pins {
		err = multierr.Append(err, p.Halt())
	}
	return err
}

func periphDuty(duty uint8) gpio.Duty {
	return gpio.Duty(int64(duty) * int64(gpio.DutyMax) / motor.DutyMax)
}
