package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentuity/go-caselaw/api"
	"github.com/agentuity/go-caselaw/tui"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := NewRootCmd(version).ExecuteContext(ctx); err != nil {
		tui.Output = os.Stderr
		tui.ShowError("%s", api.Message(err, err.Error()))
		os.Exit(1)
	}
}
