package board

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"

	"github.com/goocto/balancebot/pkg/motor"
)

type fakeAdaptor struct {
	name      string
	connected bool
	finalized bool
	digital   map[string]byte
	pwm       map[string]byte
	err       error
}

func newFakeAdaptor() *fakeAdaptor {
	return &fakeAdaptor{
		name:    "fake",
		digital: make(map[string]byte),
		pwm:     make(map[string]byte),
	}
}

func (a *fakeAdaptor) Name() string     { return a.name }
func (a *fakeAdaptor) SetName(n string) { a.name = n }

func (a *fakeAdaptor) Connect() error {
	a.connected = true
	return a.err
}

func (a *fakeAdaptor) Finalize() error {
	a.finalized = true
	return nil
}

func (a *fakeAdaptor) DigitalWrite(pin string, val byte) error {
	a.digital[pin] = val
	return nil
}

func (a *fakeAdaptor) PwmWrite(pin string, val byte) error {
	a.pwm[pin] = val
	return nil
}

var testPins = motor.Pins{
	ModeSelect:  4,
	LeftEnable:  9,
	LeftPhase:   7,
	RightEnable: 10,
	RightPhase:  8,
}

func TestGobotBoard(t *testing.T) {
	a := newFakeAdaptor()
	b, err := NewGobot(a)
	require.NoError(t, err)
	assert.True(t, a.connected)

	d, err := motor.NewDriver(b, testPins)
	require.NoError(t, err)
	assert.Equal(t, byte(1), a.digital["4"])
	assert.Equal(t, byte(0), a.digital["9"])

	require.NoError(t, d.SetSpeeds(-40, 300))
	assert.Equal(t, byte(0), a.digital["7"])
	assert.Equal(t, byte(40), a.pwm["9"])
	assert.Equal(t, byte(1), a.digital["8"])
	assert.Equal(t, byte(255), a.pwm["10"])

	require.NoError(t, b.Close())
	assert.True(t, a.finalized)
}

func TestGobotBoard_ConnectError(t *testing.T) {
	a := newFakeAdaptor()
	a.err = errors.New("no such port")

	_, err := NewGobot(a)
	assert.ErrorIs(t, err, a.err)
}

func TestPeriphBoard(t *testing.T) {
	pins := map[string]*gpiotest.Pin{}
	for _, n := range []string{"4", "9", "7", "10", "8"} {
		pins[n] = &gpiotest.Pin{N: n}
	}
	lookup := func(name string) gpio.PinIO {
		if p, ok := pins[name]; ok {
			return p
		}
		return nil
	}

	b := NewPeriph(lookup, 1000)
	d, err := motor.NewDriver(b, testPins)
	require.NoError(t, err)
	assert.Equal(t, gpio.High, pins["4"].L)

	require.NoError(t, d.SetSpeeds(255, 0))
	assert.Equal(t, gpio.High, pins["7"].L)
	assert.Equal(t, gpio.DutyMax, pins["9"].D)
	assert.Equal(t, 1000*physic.Hertz, pins["9"].F)
	assert.Equal(t, gpio.Low, pins["8"].L)
	assert.Equal(t, gpio.Duty(0), pins["10"].D)

	require.NoError(t, b.Close())
}

func TestPeriphBoard_UnknownPin(t *testing.T) {
	b := NewPeriph(func(string) gpio.PinIO { return nil }, 0)
	err := b.ConfigureOutput(3)
	assert.ErrorIs(t, err, ErrUnknownPin)
}

func TestPeriphDuty(t *testing.T) {
	assert.Equal(t, gpio.Duty(0), periphDuty(0))
	assert.Equal(t, gpio.DutyMax, periphDuty(255))
	assert.InDelta(t, float64(gpio.DutyHalf), float64(periphDuty(128)), float64(gpio.DutyMax)/255)
}

func TestPWMClock(t *testing.T) {
	assert.Equal(t, 490*255, pwmClock(0))
	assert.Equal(t, 1000*255, pwmClock(1000))
}

func TestRPIOPinRange(t *testing.T) {
	_, err := rpioPin(54)
	assert.ErrorIs(t, err, ErrUnknownPin)
	_, err = rpioPin(-1)
	assert.ErrorIs(t, err, ErrUnknownPin)
	p, err := rpioPin(18)
	require.NoError(t, err)
	assert.EqualValues(t, 18, p)
}

func TestRPIOPWMPin(t *testing.T) {
	for _, pin := range []motor.Pin{12, 13, 18, 19} {
		p, err := rpioPWMPin(pin)
		require.NoError(t, err, "pin %d", pin)
		assert.EqualValues(t, pin, p)
	}
	for _, pin := range []motor.Pin{9, 10, 17} {
		_, err := rpioPWMPin(pin)
		assert.ErrorIs(t, err, ErrUnknownPin, "pin %d", pin)
	}
}

func TestCheckPins(t *testing.T) {
	pins := motor.Pins{ModeSelect: 5, LeftEnable: 12, LeftPhase: 6, RightEnable: 13, RightPhase: 16}
	assert.NoError(t, CheckPins(RPIO, pins))

	tests := []struct {
		name        string
		left, right motor.Pin
	}{
		{"left not PWM", 9, 13},
		{"right not PWM", 12, 10},
		{"both on PWM0", 12, 18},
		{"both on PWM1", 19, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pins
			p.LeftEnable, p.RightEnable = tt.left, tt.right
			assert.ErrorIs(t, CheckPins(RPIO, p), ErrUnknownPin)
		})
	}

	// Other kinds take any pin
	assert.NoError(t, CheckPins(Firmata, motor.Pins{ModeSelect: 4, LeftEnable: 9, LeftPhase: 7, RightEnable: 10, RightPhase: 8}))
}

func TestSimBoard(t *testing.T) {
	b := NewSim()
	d, err := motor.NewDriver(b, testPins)
	require.NoError(t, err)

	high, ok := b.Level(testPins.ModeSelect)
	assert.True(t, ok)
	assert.True(t, high)
	assert.Len(t, b.Events(), 6)

	b.Reset()
	require.NoError(t, d.SetSpeeds(100, -50))
	events := b.Events()
	require.Len(t, events, 4)
	assert.Equal(t, OpDigital, events[0].Op)
	assert.Equal(t, OpPWM, events[3].Op)
	assert.Equal(t, uint8(100), b.Duty(testPins.LeftEnable))
	assert.Equal(t, uint8(50), b.Duty(testPins.RightEnable))

	high, _ = b.Level(testPins.RightPhase)
	assert.False(t, high)

	require.NoError(t, b.Close())
	assert.ErrorIs(t, d.Stop(), ErrClosed)
	assert.ErrorIs(t, b.Close(), ErrClosed)
}

func TestOpen(t *testing.T) {
	b, err := Open(Config{Kind: Sim})
	require.NoError(t, err)
	assert.IsType(t, &SimBoard{}, b)

	_, err = Open(Config{Kind: "abacus"})
	assert.ErrorIs(t, err, ErrUnknownBoard)

	_, err = Open(Config{Kind: Firmata})
	assert.Error(t, err)
}
