package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/clouder/internal/formatter"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/playback"
	"github.com/desertthunder/clouder/internal/shared"
	"github.com/urfave/cli/v3"
)

// Playlists lists the user's playlists in the requested format.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	spotify, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("fetching Spotify playlists")
	playlists, err := spotify.GetPlaylists(ctx)
	if err != nil {
		return err
	}

	if filter := cmd.String("filter"); filter != "" {
		matched := playlists[:0]
		for _, p := range playlists {
			if shared.ContainsFold(p.Name, filter) {
				matched = append(matched, p)
			}
		}
		playlists = matched
	}

	if limit := int(cmd.Int("limit")); limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	data, err := formatter.Playlists(format, playlists)
	if err != nil {
		return err
	}
	return r.emit(data, cmd.String("output"))
}

// PlayerStatus prints one snapshot of the playback state.
func (r *Runner) PlayerStatus(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	p, err := r.polled(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	snap, _ := p.source.Current()
	data, err := formatter.NowPlaying(format, snap)
	if err != nil {
		return err
	}
	return r.emit(data, cmd.String("output"))
}

// PlayerWatch prints a line per track or play state change until interrupted.
func (r *Runner) PlayerWatch(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := r.newPlayer(ctx, false)
	if err != nil {
		return err
	}
	defer p.Close()

	lines := make(chan string, 16)
	unsubscribe := p.source.Subscribe(func(snap models.Snapshot, err error) {
		if err != nil {
			r.logger.Warn("playback state unavailable", "error", err)
			return
		}
		select {
		case lines <- formatter.Line(snap):
		default:
		}
	})
	defer unsubscribe()

	p.source.Start(ctx)
	r.logger.Info("watching playback", "mode", p.source.Mode())

	last := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			if line == last {
				continue
			}
			last = line
			if err := r.writePlain("%s\n", line); err != nil {
				return err
			}
		}
	}
}

// transport returns an action that reads the current state once and sends the intent of b.
func (r *Runner) transport(b playback.Binding) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return r.send(ctx, b)
	}
}

func (r *Runner) send(ctx context.Context, b playback.Binding) error {
	p, err := r.polled(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	snap, ok := p.source.Current()
	if !ok {
		return fmt.Errorf("%w: no playback state", shared.ErrPrecondition)
	}
	switch b.Action {
	case playback.ActionSeek, playback.ActionFastForward, playback.ActionRewind:
		if snap.Track == nil {
			return fmt.Errorf("%w: nothing is playing", shared.ErrPrecondition)
		}
	}
	if err := p.dispatcher.Do(ctx, b); err != nil {
		return err
	}

	r.logger.Debug("command sent", "action", b.Action)
	return r.writePlain("✓ %s\n", b.Action)
}

// PlayerSeek seeks to --percent of the current track.
func (r *Runner) PlayerSeek(ctx context.Context, cmd *cli.Command) error {
	return r.send(ctx, playback.Binding{Action: playback.ActionSeek, Fraction: cmd.Float("percent") / 100})
}

// PlayerOpen starts the given playlist or album URI.
func (r *Runner) PlayerOpen(ctx context.Context, cmd *cli.Command) error {
	uri := cmd.StringArg("uri")
	if uri == "" {
		return fmt.Errorf("%w: spotify URI is required", shared.ErrMissingArgument)
	}

	p, err := r.polled(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.dispatcher.PlayContext(ctx, uri); err != nil {
		return err
	}
	return r.writePlain("✓ Playing %s\n", uri)
}
