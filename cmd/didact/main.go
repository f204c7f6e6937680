// Command didact answers questions over an indexed document corpus.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/didact-labs/didact/internal/adapters/driving/cli"
	"github.com/didact-labs/didact/internal/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	app, err := newApp()
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	defer app.Close()

	cli.SetVersion(version)
	cli.SetServices(app.Services())

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
