package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/odyssey-relay/server/pkg/admincli"
	"github.com/odyssey-relay/server/pkg/adminhttp"
	"github.com/odyssey-relay/server/pkg/config"
	"github.com/odyssey-relay/server/pkg/relay"
)

func rootCmd() *cobra.Command {
	var configPath string
	var adminAddr string

	cmd := &cobra.Command{
		Use:   "smorelay",
		Short: "A relay server for SMO Online-compatible clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, adminAddr)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.json", "path to the relay's JSON config file")
	cmd.Flags().StringVar(&adminAddr, "admin-http", "", "optional address to serve the admin HTTP surface on, e.g. 127.0.0.1:9090")

	return cmd
}

func run(configPath, adminAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("smorelay: %w", err)
	}

	log, err := initLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("smorelay: initializing logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	r, err := relay.NewRelay(cfg, log)
	if err != nil {
		return fmt.Errorf("smorelay: %w", err)
	}
	admin := relay.NewAdmin(r)

	ln, err := relay.NewListener(r)
	if err != nil {
		return fmt.Errorf("smorelay: %w", err)
	}
	log.Info("listening", zap.Stringer("addr", ln.Addr()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer func() { signal.Stop(sig); close(sig) }()

	go func() {
		s, ok := <-sig
		if !ok {
			return
		}
		log.Info("received signal, shutting down", zap.Stringer("signal", s))
		admin.SendChat("Server is shutting down...")
		_ = ln.Close()
		r.Shutdown()
		cancel()
	}()

	if adminAddr != "" {
		srv := adminhttp.New(admin, log)
		go func() {
			if err := srv.ListenAndServe(adminAddr); err != nil {
				log.Error("admin http server stopped", zap.Error(err))
			}
		}()
	}

	go admincli.NewConsole(admin, log).Run(ctx)

	return ln.Serve(ctx)
}

func initLogger(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}
