package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/contentforge/admin-console/cmd/consolectl/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := cli.NewEnvRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, "consolectl:", err)
		os.Exit(1)
	}
	err = cli.NewRootCommand(rt).ExecuteContext(ctx)
	if closeErr := rt.Close(); closeErr != nil {
		fmt.Fprintln(os.Stderr, "consolectl: close:", closeErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "consolectl:", err)
		os.Exit(1)
	}
}
