// Package board provides motor.Outputs implementations for the platforms
// the robot runs on.
package board

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"
	"gobot.io/x/gobot/v2/platforms/firmata"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/goocto/balancebot/pkg/motor"
)

// Kind selects a platform adapter.
type Kind string

const (
	Firmata Kind = "firmata" // Arduino running Firmata, over serial
	Raspi   Kind = "raspi"   // Raspberry Pi through gobot
	Periph  Kind = "periph"  // any host periph.io supports
	RPIO    Kind = "rpio"    // Raspberry Pi through /dev/gpiomem
	Sim     Kind = "sim"     // in-memory, for dry runs
)

// DefaultPWMFrequency matches the Arduino analogWrite rate on most pins.
const DefaultPWMFrequency = 490

var (
	// ErrUnknownBoard is returned for a Kind that Open does not support.
	ErrUnknownBoard = errors.New("unknown board kind")
	// ErrUnknownPin is returned for pins the board cannot drive as asked.
	ErrUnknownPin = errors.New("unknown pin")
	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("board closed")
)

// Kinds returns all supported board kinds.
func Kinds() []Kind {
	return []Kind{Firmata, Raspi, Periph, RPIO, Sim}
}

// Config selects and parameterises a board.
type Config struct {
	Kind         Kind   `json:"kind" yaml:"kind" env:"BALANCEBOT_BOARD"`
	Port         string `json:"port,omitempty" yaml:"port,omitempty" env:"BALANCEBOT_PORT"`
	PWMFrequency int    `json:"pwm_frequency,omitempty" yaml:"pwm_frequency,omitempty" env:"BALANCEBOT_PWM_FREQUENCY"`
}

// Board is a platform that can drive the motor controller pins.
type Board interface {
	motor.Outputs
	io.Closer
}

// Open connects to the board described by cfg.
func Open(cfg Config) (Board, error) {
	freq := cfg.PWMFrequency
	if freq <= 0 {
		freq = DefaultPWMFrequency
	}

	switch cfg.Kind {
	case Firmata:
		if cfg.Port == "" {
			return nil, fmt.Errorf("firmata: no serial port configured")
		}
		return NewGobot(firmata.NewAdaptor(cfg.Port))
	case Raspi:
		return NewGobot(raspi.NewAdaptor())
	case Periph:
		return OpenPeriph(freq)
	case RPIO:
		return OpenRPIO(freq)
	case Sim:
		return NewSim(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, cfg.Kind)
	}
}

// CheckPins reports pin assignments the board kind cannot drive. Only
// rpio restricts which pins can carry PWM.
func CheckPins(kind Kind, pins motor.Pins) error {
	if kind == RPIO {
		return checkRPIOPins(pins)
	}
	return nil
}

// SerialPorts lists serial ports a Firmata board could be attached to.
func SerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	var out []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out, nil
}
