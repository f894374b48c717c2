// Command presale deploys and operates a gated token or NFT sale.
//
// Usage:
//
//	presale [--config file] [--store memory|sqlite] [--datadir dir] <command>
//
// Commands read the sale from the configured database. With the sqlite
// store, state persists between invocations; "presale deploy" must run
// first. Every setting can also come from PRESALE_* environment variables.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the actual entry point, returning an exit code. It takes the CLI
// arguments without the program name so it can be tested in isolation.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, newRootCommand(&rootOptions{}), args, stdout, stderr)
}
