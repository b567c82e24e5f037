package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"time"

	echoapi "github.com/kyleyee20/aevum/apps/api/echo"
	"github.com/kyleyee20/aevum/apps/shared"
	"github.com/kyleyee20/aevum/core"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	wd, _ := os.Getwd()
	conf, err := core.LoadConfig(wd)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, syncLogs, err := shared.NewLogger(conf)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = syncLogs() }()

	app, err := shared.Build(conf, logger)
	if err != nil {
		logger.Fatal("setting up engine", "error", err)
	}
	defer func() {
		if err = app.Close(); err != nil {
			logger.Error("closing engine", "error", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : env %q", conf.Env))
	defer logger.Info("Application stopped")

	// Expose important info under /debug/vars.
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("dbEngine").Set(conf.Database.Engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err = app.Engine.Refresh(ctx); err != nil {
		logger.Error("initial refresh", "error", err)
	}
	if err = app.StartBackground(ctx); err != nil {
		logger.Fatal("starting background workers", "error", err)
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:    conf,
		Logger:  logger,
		Engine:  app.Engine,
		Courses: app.Courses,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error("server error", "error", err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error("could not stop server gracefully", "error", err)

			if err = server.Close(); err != nil {
				logger.Error("could not force stop server", "error", err)
			}
		}
	}
}
