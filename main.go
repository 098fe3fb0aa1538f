package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"

	"github.com/Zachkp/resume-terminal/internal/analytics"
	"github.com/Zachkp/resume-terminal/internal/config"
	"github.com/Zachkp/resume-terminal/internal/logger"
	"github.com/Zachkp/resume-terminal/internal/resume"
)

func main() {
	flags := pflag.NewFlagSet("portfolio", pflag.ExitOnError)
	cfgFile := flags.String("config", "", "config file (default: ./"+config.DefaultFile+")")
	flags.Int("port", 0, "listen port")
	flags.String("database", "", "analytics database path")
	flags.String("resume-path", "", "resume document (.json, .yaml)")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	_ = flags.Parse(os.Args[1:])

	if err := run(*cfgFile, flags); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfgFile string, flags *pflag.FlagSet) error {
	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return err
	}
	log := logger.Init(os.Stdout, logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	gin.SetMode(cfg.Mode)

	doc, err := resume.Load(cfg.ResumePath)
	if err != nil {
		return err
	}

	store, err := analytics.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := newServer(cfg, log, doc, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.run(ctx)
}
