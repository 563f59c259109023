package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/termhost/internal/client"
)

const usage = `Usage: termctl [-server URL] <command> [flags] [args]

Commands:
  health                        server health
  list                          list sessions
  create -name N [-cwd D] [-shell S] [-cols C] [-rows R]
  get <id> | get -name N        show a session
  kill <id>                     kill a session
  exec <id|-name N> <command>   send a command line
  wait [-timeout D] <id|-name N> <command>
                                run a command and print the output
  capture [-timeout D] <id> <command>
                                run a command and print exact output and exit code
  write <id|-name N> <data>     send raw data (escapes like \n are not expanded)
  resize <id> <cols> <rows>     resize a session
  buffer [-lines N] <id|-name N>
                                print captured output
  flush <id>                    discard captured output
  services                      list tool services
  tool <tool_id> [json params]  execute a tool
  attach [-replay N] <id>       stream a session to this terminal
  spawn                         open a throwaway session (killed on exit)
`

func main() {
	server := flag.String("server", envOr("TERMHOST_URL", "http://localhost:8000"), "termhost server URL")
	timeout := flag.Duration("timeout", 30*time.Second, "per-request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	opts := client.DefaultOptions(*server)
	opts.Timeout = *timeout
	c := client.New(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := run(ctx, c, cmd, args); err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "termctl %s: %v\n\n", cmd, err)
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "termctl %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
