package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/desertthunder/clouder/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the control API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := r.authenticated(ctx)
	if err != nil {
		return err
	}
	sess.OnExpired(func() {
		r.logger.Error("Spotify session expired, run `clouder auth login` and restart the server")
	})

	p, err := r.newPlayer(ctx, false)
	if err != nil {
		return err
	}
	defer p.Close()

	router := server.NewRouter()
	router.Use(server.Logging(r.logger))
	server.NewControlAPI(p.source, p.dispatcher, p.resolver, p.mover, r.logger).Mount(router)

	p.source.Start(ctx)

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	r.logger.Info("starting control API", "addr", addr, "mode", p.source.Mode())
	return server.Serve(ctx, addr, server.CORS(r.config.Server.AllowedOrigins)(router), r.logger)
}
