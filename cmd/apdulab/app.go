package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/apdulab/apdulab/pkg/engine"
)

// run loads the configuration, assembles the engine and enters the TUI event
// loop. The config file is optional: when it is missing the built-in defaults
// (local bridge, local emulator) are used.
func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := engine.LoadConfig(configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = engine.DefaultConfig()
	} else if err != nil {
		return err
	}

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	model := newAppModel(ctx, eng)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// The model needs the program pointer to start the bridge goroutines.
	go p.Send(programReadyMsg{program: p})

	finalModel, err := p.Run()
	if m, ok := finalModel.(appModel); ok && m.cancelBridge != nil {
		m.cancelBridge()
	}
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
