// attend is the overlay client: a terminal UI that shows the live meeting
// transcript, accepts questions, and toggles visibility with a global
// hotkey.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jcarver/attend/internal/app"
	"github.com/jcarver/attend/internal/config"
	"github.com/jcarver/attend/internal/hotkey"
)

func main() {
	var (
		configPath = flag.String("config", config.DefaultPath(), "Path to config file")
		socketPath = flag.String("socket", "", "Unix socket path (overrides config)")
		noHotkey   = flag.Bool("no-hotkey", false, "Skip global hotkey registration")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attend: %v\n", err)
		os.Exit(1)
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}

	m := app.New(app.Options{
		SocketPath:   cfg.SocketPath,
		DBPath:       cfg.DBPath,
		StartVisible: cfg.StartVisible,
		HotkeyHint:   cfg.ToggleHotkey,
		Notify:       true,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The global hotkey runs beside the TUI and injects toggle messages.
	// Registration failure degrades to the in-TUI binding.
	if !*noHotkey {
		binding, err := hotkey.Parse(cfg.ToggleHotkey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "attend: invalid toggle_hotkey: %v\n", err)
		} else {
			go func() {
				err := hotkey.Listen(ctx, binding, func() {
					p.Send(app.ToggleRequestMsg{})
				})
				if err != nil {
					fmt.Fprintf(os.Stderr, "attend: global hotkey unavailable: %v\n", err)
				}
			}()
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "attend: %v\n", err)
		os.Exit(1)
	}
}
