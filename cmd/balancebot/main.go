package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/goocto/balancebot/pkg/robot"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"balancebot.json" description:"Config file (.json, .yaml or .yml)"`
	Verbose bool   `short:"v" long:"verbose" description:"Log every pin write"`

	Setup SetupCommand `command:"setup" description:"Choose a board and pin assignment, and check wheel directions"`
	Info  InfoCommand  `command:"info" description:"Show the current configuration"`
	Set   SetCommand   `command:"set" description:"Drive both wheels at fixed speeds for a while"`
	Drive DriveCommand `command:"drive" description:"Drive the robot from the keyboard"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "balancebot - motor control CLI for two-wheeled PH/EN robots"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if opts.Verbose {
			log.SetLevel(log.DebugLevel)
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config.
func loadConfig() *robot.Config {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		log.WithError(err).Errorf("No usable configuration in %s. Run 'balancebot setup' first.", opts.Config)
		os.Exit(1)
	}
	return cfg
}

// interruptContext is cancelled on Ctrl-C or SIGTERM, so commands that
// leave the wheels turning get to stop them and close the board.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// hold waits for d, or returns ctx.Err() early if ctx is cancelled.
func hold(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
