package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if err != nil {
		if _, isExit := err.(exitError); !isExit {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(code)
}
