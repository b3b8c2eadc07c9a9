package board

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"gobot.io/x/gobot/v2"
	"gobot.io/x/gobot/v2/drivers/gpio"

	"github.com/goocto/balancebot/pkg/motor"
)

// Adaptor is a gobot adaptor able to write digital and PWM values.
type Adaptor interface {
	gobot.Adaptor
	gpio.DigitalWriter
	gpio.PwmWriter
}

// GobotBoard drives the pins through a gobot adaptor. Pin numbers are
// passed to the adaptor as decimal strings.
type GobotBoard struct {
	adaptor Adaptor
}

// NewGobot connects the adaptor.
func NewGobot(a Adaptor) (*GobotBoard, error) {
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", a.Name(), err)
	}
	log.WithField("adaptor", a.Name()).Info("board connected")
	return &GobotBoard{adaptor: a}, nil
}

// ConfigureOutput drives the pin low, which also puts it in output mode.
func (b *GobotBoard) ConfigureOutput(pin motor.Pin) error {
	return b.adaptor.DigitalWrite(pinName(pin), 0)
}

// DigitalWrite writes 1 for high and 0 for low.
func (b *GobotBoard) DigitalWrite(pin motor.Pin, high bool) error {
	var level byte
	if high {
		level = 1
	}
	return b.adaptor.DigitalWrite(pinName(pin), level)
}

// PWMWrite passes the duty through unchanged; gobot adaptors scale 0-255.
func (b *GobotBoard) PWMWrite(pin motor.Pin, duty uint8) error {
	return b.adaptor.PwmWrite(pinName(pin), duty)
}

// Close finalizes the adaptor.
func (b *GobotBoard) Close() error {
	return b.adaptor.Finalize()
}

func pinName(pin motor.Pin) string {
	return strconv.Itoa(int(pin))
}
