package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/goocto/balancebot/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type InfoCommand struct{}

func (c *InfoCommand) Execute(args []string) error {
	cfg := loadConfig()

	fmt.Println(headerStyle.Render("balancebot"))
	fmt.Println(dimStyle.Render(opts.Config))
	fmt.Println()
	fmt.Println(renderConfig(cfg))
	return nil
}

func renderConfig(cfg *robot.Config) string {
	port := cfg.Board.Port
	if port == "" {
		port = "-"
	}

	rows := [][]string{
		{"Board", string(cfg.Board.Kind)},
		{"Port", port},
		{"Mode select pin", strconv.Itoa(int(cfg.Pins.ModeSelect))},
		{"Left enable pin", strconv.Itoa(int(cfg.Pins.LeftEnable))},
		{"Left phase pin", strconv.Itoa(int(cfg.Pins.LeftPhase)) + invertedMark(cfg.InvertLeft)},
		{"Right enable pin", strconv.Itoa(int(cfg.Pins.RightEnable))},
		{"Right phase pin", strconv.Itoa(int(cfg.Pins.RightPhase)) + invertedMark(cfg.InvertRight)},
		{"Max magnitude", strconv.Itoa(cfg.MaxMagnitude)},
		{"Control rate", fmt.Sprintf("%d Hz", cfg.Drive.Hz)},
		{"Watchdog", time.Duration(cfg.Drive.Watchdog).String()},
	}

	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	valueStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return valueStyle
		})
	return t.Render()
}

func invertedMark(inverted bool) string {
	if inverted {
		return " (inverted)"
	}
	return ""
}
