// Package balancebot drives the wheels of a two-wheeled robot through an
// H-bridge motor controller in phase/enable (PH/EN) mode.
//
// # Installation
//
//	go install github.com/goocto/balancebot/cmd/balancebot@latest
//
// # Usage
//
// First, run setup to pick a board, assign pins and check wheel
// directions:
//
//	balancebot setup
//
// Then drive from the keyboard:
//
//	balancebot drive
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/balancebot: CLI with setup, info, set and drive commands
//   - pkg/motor: PH/EN motor driver
//   - pkg/board: Firmata, Raspberry Pi, periph.io and simulated pin adapters
//   - pkg/drive: Control loop with watchdog and ramping
//   - pkg/robot: Configuration and robot assembly
package balancebot
