package board

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	rpio "github.com/stianeikeland/go-rpio/v4"

	"github.com/goocto/balancebot/pkg/motor"
)

// rpioPWMChannels maps the BCM pins with a hardware PWM function to
// their channel. go-rpio ignores PWM calls on any other pin.
var rpioPWMChannels = map[motor.Pin]int{
	12: 0, 18: 0, 40: 0,
	13: 1, 19: 1, 41: 1, 45: 1,
}

// RPIOBoard drives Raspberry Pi BCM pins through memory-mapped GPIO.
// Only one may be open per process.
type RPIOBoard struct {
	freq int
	pwm  map[motor.Pin]bool
}

// OpenRPIO maps the GPIO registers.
func OpenRPIO(freqHz int) (*RPIOBoard, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("rpio open: %w", err)
	}
	log.Info("rpio opened")
	return &RPIOBoard{freq: freqHz, pwm: make(map[motor.Pin]bool)}, nil
}

// ConfigureOutput puts the pin in output mode, driven low.
func (b *RPIOBoard) ConfigureOutput(pin motor.Pin) error {
	p, err := rpioPin(pin)
	if err != nil {
		return err
	}
	p.Output()
	p.Low()
	return nil
}

// DigitalWrite drives the pin high or low.
func (b *RPIOBoard) DigitalWrite(pin motor.Pin, high bool) error {
	p, err := rpioPin(pin)
	if err != nil {
		return err
	}
	if high {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// PWMWrite switches the pin to PWM mode on first use. The PWM clock is
// set so that one cycle of DutyMax steps runs at the board frequency.
// Pins without hardware PWM return ErrUnknownPin.
func (b *RPIOBoard) PWMWrite(pin motor.Pin, duty uint8) error {
	p, err := rpioPWMPin(pin)
	if err != nil {
		return err
	}
	if !b.pwm[pin] {
		p.Pwm()
		p.Freq(pwmClock(b.freq))
		b.pwm[pin] = true
	}
	p.DutyCycle(uint32(duty), motor.DutyMax)
	return nil
}

// Close zeroes PWM outputs and unmaps the registers.
func (b *RPIOBoard) Close() error {
	for pin := range b.pwm {
		rpio.Pin(uint8(pin)).DutyCycle(0, motor.DutyMax)
	}
	return rpio.Close()
}

func rpioPin(pin motor.Pin) (rpio.Pin, error) {
	if pin < 0 || pin > 53 {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	return rpio.Pin(uint8(pin)), nil
}

func rpioPWMPin(pin motor.Pin) (rpio.Pin, error) {
	if _, ok := rpioPWMChannels[pin]; !ok {
		return 0, fmt.Errorf("%w: %d has no hardware PWM", ErrUnknownPin, pin)
	}
	return rpioPin(pin)
}

// checkRPIOPins requires both enable pins on hardware PWM, one per
// channel. Two pins on the same channel always carry the same duty.
func checkRPIOPins(pins motor.Pins) error {
	for _, pin := range []motor.Pin{pins.LeftEnable, pins.RightEnable} {
		if _, err := rpioPWMPin(pin); err != nil {
			return err
		}
	}
	if ch := rpioPWMChannels[pins.LeftEnable]; ch == rpioPWMChannels[pins.RightEnable] {
		return fmt.Errorf("%w: enable pins %d and %d share PWM channel %d",
			ErrUnknownPin, pins.LeftEnable, pins.RightEnable, ch)
	}
	return nil
}

func pwmClock(freqHz int) int {
	if freqHz <= 0 {
		freqHz = DefaultPWMFrequency
	}
	return freqHz * motor.DutyMax
}
