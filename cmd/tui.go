package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/clouder/internal/shared"
	"github.com/desertthunder/clouder/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.config.Log.Level)
	r.SetLogger(fileLogger)

	sess, err := r.authenticated(ctx)
	if err != nil {
		return err
	}

	p, err := r.newPlayer(ctx, false)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(ctx, ui.Deps{
		Playlists:  p.spotify,
		Dispatcher: p.dispatcher,
		Resolver:   p.resolver,
		Mover:      p.mover,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unwatch := ui.Watch(program, p.source)
	defer unwatch()
	sess.OnExpired(func() {
		program.Send(ui.ExpiredMsg())
	})

	p.source.Start(ctx)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
