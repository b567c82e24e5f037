package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kyleyee20/aevum/apps/shared"
	"github.com/kyleyee20/aevum/core"
)

func main() {
	wd, _ := os.Getwd()
	conf, err := core.LoadConfig(wd)
	errAndDie(err)

	logger, syncLogs, err := shared.NewLogger(conf)
	errAndDie(err)

	app, err := shared.Build(conf, logger)
	errAndDie(err)

	ctx := context.Background()
	if _, err = app.Engine.Refresh(ctx); err != nil {
		logger.Warn("initial refresh", "error", err)
	}

	// start CLI
	cli := commandLine{engine: app.Engine, courses: app.Courses}
	err = cli.run(ctx, os.Args[1:], os.Stdout)

	_ = app.Close()
	_ = syncLogs()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
