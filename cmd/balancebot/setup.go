package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	log "github.com/sirupsen/logrus"

	"github.com/goocto/balancebot/pkg/board"
	"github.com/goocto/balancebot/pkg/motor"
	"github.com/goocto/balancebot/pkg/robot"
)

type SetupCommand struct {
	SkipCheck bool          `long:"skip-check" description:"Do not spin the wheels to check their direction"`
	Speed     int           `long:"speed" default:"80" description:"Wheel speed used for the direction check"`
	Spin      time.Duration `long:"spin" default:"700ms" description:"How long each wheel spins during the check"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("balancebot setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg := robot.DefaultConfig()
	if robot.ConfigExists(opts.Config) {
		if existing, err := robot.ReadConfigFrom(opts.Config); err == nil {
			cfg = existing
			fmt.Printf("Editing %s\n\n", opts.Config)
		}
	}

	// Step 1: Board
	if err := chooseBoard(cfg); err != nil {
		return abortOnCancel(err)
	}

	// Step 2: Pins
	fmt.Println(subHeaderStyle.Render("━━━ Pin assignment ━━━"))
	fmt.Println()
	if err := choosePins(cfg); err != nil {
		return abortOnCancel(err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Save before touching hardware
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	// Step 3: Direction check
	if !c.SkipCheck {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Wheel direction check ━━━"))
		fmt.Println()
		if err := c.checkDirections(cfg); err != nil {
			return abortOnCancel(err)
		}
		if err := cfg.SaveTo(opts.Config); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println(renderConfig(cfg))
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("balancebot drive"))
	return nil
}

func abortOnCancel(err error) error {
	if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
		fmt.Println()
		os.Exit(0)
	}
	return err
}

func chooseBoard(cfg *robot.Config) error {
	kindOptions := []huh.Option[board.Kind]{
		huh.NewOption("Arduino with Firmata (serial)", board.Firmata),
		huh.NewOption("Raspberry Pi (gobot, header pin numbers)", board.Raspi),
		huh.NewOption("periph.io host (GPIO names)", board.Periph),
		huh.NewOption("Raspberry Pi (go-rpio, BCM numbers)", board.RPIO),
		huh.NewOption("Simulated board (dry run)", board.Sim),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[board.Kind]().
				Title("Which board drives the motor controller?").
				Options(kindOptions...).
				Value(&cfg.Board.Kind),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if cfg.Board.Kind != board.Firmata {
		return nil
	}

	ports, err := board.SerialPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		return fmt.Errorf("no serial ports found; is the Arduino connected?")
	}

	var portOptions []huh.Option[string]
	for _, port := range ports {
		portOptions = append(portOptions, huh.NewOption(port, port))
	}
	if cfg.Board.Port == "" {
		cfg.Board.Port = ports[0]
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which serial port is the Arduino on?").
				Options(portOptions...).
				Value(&cfg.Board.Port),
		),
	).Run()
}

func choosePins(cfg *robot.Config) error {
	fields := []struct {
		title string
		pin   *motor.Pin
	}{
		{"Mode select pin (held high for PH/EN)", &cfg.Pins.ModeSelect},
		{"Left enable (PWM) pin", &cfg.Pins.LeftEnable},
		{"Left phase (direction) pin", &cfg.Pins.LeftPhase},
		{"Right enable (PWM) pin", &cfg.Pins.RightEnable},
		{"Right phase (direction) pin", &cfg.Pins.RightPhase},
	}

	values := make([]string, len(fields))
	magnitude := strconv.Itoa(cfg.MaxMagnitude)

	var inputs []huh.Field
	for i, f := range fields {
		values[i] = strconv.Itoa(int(*f.pin))
		inputs = append(inputs, huh.NewInput().
			Title(f.title).
			Value(&values[i]).
			Validate(validatePin))
	}
	inputs = append(inputs, huh.NewInput().
		Title(fmt.Sprintf("Max PWM magnitude (1-%d)", motor.DutyMax)).
		Value(&magnitude).
		Validate(validateMagnitude))

	if err := huh.NewForm(huh.NewGroup(inputs...)).Run(); err != nil {
		return err
	}

	for i, f := range fields {
		n, _ := strconv.Atoi(strings.TrimSpace(values[i]))
		*f.pin = motor.Pin(n)
	}
	cfg.MaxMagnitude, _ = strconv.Atoi(strings.TrimSpace(magnitude))
	return nil
}

func validatePin(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter a non-negative pin number")
	}
	return nil
}

func validateMagnitude(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > motor.DutyMax {
		return fmt.Errorf("enter a number between 1 and %d", motor.DutyMax)
	}
	return nil
}

// checkDirections spins each wheel forward in turn and asks whether it
// moved the robot forward, inverting the wheel if not.
func (c *SetupCommand) checkDirections(cfg *robot.Config) error {
	cfg.InvertLeft, cfg.InvertRight = false, false

	ctx, stop := interruptContext()
	defer stop()

	r, err := robot.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.WithError(err).Warn("close robot")
		}
	}()

	wheels := []struct {
		name   string
		spin   func() error
		invert *bool
	}{
		{"left", func() error { return r.SetSpeeds(c.Speed, 0) }, &cfg.InvertLeft},
		{"right", func() error { return r.SetSpeeds(0, c.Speed) }, &cfg.InvertRight},
	}

	for _, w := range wheels {
		fmt.Printf("  Spinning %s wheel...\n", w.name)
		if err := w.spin(); err != nil {
			return fmt.Errorf("spin %s wheel: %w", w.name, err)
		}
		held := hold(ctx, c.Spin)
		if err := r.Stop(); err != nil {
			return fmt.Errorf("stop: %w", err)
		}
		if held != nil {
			return held
		}

		forward := true
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Did the %s wheel roll forward?", w.name)).
					Affirmative("Yes").
					Negative("No, backward").
					Value(&forward),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		*w.invert = !forward
	}
	return nil
}
