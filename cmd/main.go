package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/clouder/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.App().Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrAuthExpired), errors.Is(err, shared.ErrNotAuthenticated):
			logger.Error("not signed in to Spotify, run `clouder auth login`", "error", err)
			os.Exit(1)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
