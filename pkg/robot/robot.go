// Package robot assembles the board and motor driver of a two-wheeled robot.
package robot

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/goocto/balancebot/pkg/board"
	"github.com/goocto/balancebot/pkg/drive"
	"github.com/goocto/balancebot/pkg/motor"
)

var _ drive.Motors = (*Robot)(nil)

// Robot is a two-wheeled robot with its motor controller attached to a
// board.
type Robot struct {
	board       board.Board
	driver      *motor.Driver
	invertLeft  bool
	invertRight bool
}

// Open connects to the configured board and initializes the motor driver.
func Open(cfg *Config) (*Robot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	b, err := board.Open(cfg.Board)
	if err != nil {
		return nil, fmt.Errorf("open board: %w", err)
	}

	r, err := New(b, cfg)
	if err != nil {
		return nil, multierr.Append(err, b.Close())
	}
	return r, nil
}

// New builds a robot on an already open board. The robot takes ownership
// of b.
func New(b board.Board, cfg *Config) (*Robot, error) {
	driver, err := motor.NewDriver(b, cfg.Pins, motor.WithMaxMagnitude(cfg.MaxMagnitude))
	if err != nil {
		return nil, fmt.Errorf("motor driver: %w", err)
	}

	log.WithFields(log.Fields{
		"board":         cfg.Board.Kind,
		"pins":          fmt.Sprintf("%+v", cfg.Pins),
		"max_magnitude": driver.MaxMagnitude(),
	}).Info("motor driver ready")

	return &Robot{
		board:       b,
		driver:      driver,
		invertLeft:  cfg.InvertLeft,
		invertRight: cfg.InvertRight,
	}, nil
}

// MaxMagnitude returns the duty ceiling of the driver.
func (r *Robot) MaxMagnitude() int {
	return r.driver.MaxMagnitude()
}

// SetSpeeds drives both wheels, flipping the sign for wheels wired
// backwards.
func (r *Robot) SetSpeeds(left, right int) error {
	if r.invertLeft {
		left = -left
	}
	if r.invertRight {
		right = -right
	}
	return r.driver.SetSpeeds(left, right)
}

// Stop stops both wheels.
func (r *Robot) Stop() error {
	return r.driver.Stop()
}

// Close stops the wheels and releases the board.
func (r *Robot) Close() error {
	err := r.driver.Stop()
	if err != nil {
		log.WithError(err).Warn("failed to stop motors on close")
	}
	return multierr.Append(err, r.board.Close())
}
