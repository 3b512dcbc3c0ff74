package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/clouder/internal/categories"
	"github.com/desertthunder/clouder/internal/formatter"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
	"github.com/urfave/cli/v3"
)

// CategoriesList resolves the categories of --playlist, or of the playing playlist.
func (r *Runner) CategoriesList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	var resolved []models.CategoryPlaylist
	if id := cmd.String("playlist"); id != "" {
		clouder, err := r.clouder(ctx)
		if err != nil {
			return err
		}
		resolved, err = categories.NewResolver(clouder, r.logger).ResolvePlaylist(ctx, id)
		if err != nil {
			return err
		}
	} else {
		p, err := r.polled(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		snap, _ := p.source.Current()
		resolved, err = p.resolver.ResolveContext(ctx, snap.Context)
		if err != nil {
			return err
		}
	}

	limit := categories.MaxShown
	if cmd.Bool("all") {
		limit = 0
	}

	data, err := formatter.Categories(format, categories.Present(resolved, limit))
	if err != nil {
		return err
	}
	return r.emit(data, cmd.String("output"))
}

// CategoriesMove moves the playing track from its playlist into the target category playlist.
func (r *Runner) CategoriesMove(ctx context.Context, cmd *cli.Command) error {
	target := cmd.StringArg("target")
	if target == "" {
		return fmt.Errorf("%w: target playlist id is required", shared.ErrMissingArgument)
	}

	p, err := r.polled(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	snap, _ := p.source.Current()
	if snap.Track == nil {
		return fmt.Errorf("%w: nothing is playing", shared.ErrPrecondition)
	}
	if _, err := p.resolver.ResolveContext(ctx, snap.Context); err != nil {
		return err
	}

	if err := p.mover.MoveCurrentTrack(ctx, target); err != nil {
		return err
	}
	return r.writePlain("✓ Moved %s\n", snap.Track.Name)
}

// CategoriesWeeks lists the weeks the backend knows about.
func (r *Runner) CategoriesWeeks(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	clouder, err := r.clouder(ctx)
	if err != nil {
		return err
	}

	weeks, err := clouder.Weeks(ctx)
	if err != nil {
		return err
	}

	data, err := formatter.Weeks(format, weeks)
	if err != nil {
		return err
	}
	return r.emit(data, cmd.String("output"))
}
