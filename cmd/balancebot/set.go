package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/goocto/balancebot/pkg/robot"
)

type SetCommand struct {
	Left     int           `short:"l" long:"left" description:"Left wheel speed (negative is reverse)"`
	Right    int           `short:"r" long:"right" description:"Right wheel speed (negative is reverse)"`
	Duration time.Duration `short:"d" long:"duration" default:"1s" description:"How long to drive before stopping"`
}

func (c *SetCommand) Execute(args []string) error {
	cfg := loadConfig()

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

	if err := r.SetSpeeds(c.Left, c.Right); err != nil {
		return fmt.Errorf("set speeds: %w", err)
	}
	log.WithFields(log.Fields{
		"left":     c.Left,
		"right":    c.Right,
		"duration": c.Duration,
	}).Info("driving")

	if err := hold(ctx, c.Duration); err != nil {
		log.Info("interrupted, stopping")
	}
	return r.Stop()
}
