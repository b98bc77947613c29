package cmd

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"

	logging "github.com/Station-Manager/weblog"
	"github.com/Station-Manager/weblog/config"
	"github.com/Station-Manager/weblog/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	wd, err := filepath.Abs(workingDir)
	if err != nil {
		return err
	}

	svc := &logging.Service{WorkingDir: wd, Config: &cfg.Server.Log}
	if err = svc.Initialize(); err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	srv, err := server.New(cfg, svc)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
