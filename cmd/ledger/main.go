package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/receivables-ledger/internal/interfaces/cli"
	"github.com/jhoicas/receivables-ledger/pkg/config"
	"github.com/jhoicas/receivables-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	// stdout queda para la salida JSON de los comandos.
	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
		Out:   os.Stderr,
	})
	log.Debug().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("currency", cfg.Ledger.Currency).
		Msg("iniciando cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := cli.NewPostgresBackend(cfg, log)
	app := &cli.App{Backend: backend, Log: log, Out: os.Stdout, Err: os.Stderr}

	err = cli.NewRootCommand(app).ExecuteContext(ctx)
	backend.Close()
	if err != nil {
		app.Fail(err)
		stop()
		os.Exit(cli.ExitCode(err))
	}
}
