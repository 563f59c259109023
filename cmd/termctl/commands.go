package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/termhost/internal/client"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
)

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "health":
		health, err := c.Health(ctx)
		if err != nil {
			return err
		}
		return printJSON(health)

	case "list":
		sessions, err := c.List(ctx)
		if err != nil {
			return err
		}
		printSessions(sessions)
		return nil

	case "create":
		return create(ctx, c, args)

	case "get":
		return get(ctx, c, args)

	case "kill":
		if len(args) != 1 {
			return usagef("expected a session ID")
		}
		return c.Kill(ctx, args[0])

	case "exec":
		return execCmd(ctx, c, args)

	case "wait":
		return waitCmd(ctx, c, args)

	case "capture":
		return captureCmd(ctx, c, args)

	case "write":
		return writeCmd(ctx, c, args)

	case "resize":
		if len(args) != 3 {
			return usagef("expected <id> <cols> <rows>")
		}
		cols, err1 := strconv.Atoi(args[1])
		rows, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			return usagef("cols and rows must be integers")
		}
		session, err := c.Resize(ctx, args[0], cols, rows)
		if err != nil {
			return err
		}
		return printJSON(session)

	case "buffer":
		return bufferCmd(ctx, c, args)

	case "flush":
		if len(args) != 1 {
			return usagef("expected a session ID")
		}
		return c.Flush(ctx, args[0])

	case "services":
		services, err := c.Services(ctx)
		if err != nil {
			return err
		}
		return printJSON(services)

	case "tool":
		return toolCmd(ctx, c, args)

	case "attach":
		return attachCmd(ctx, c, args)

	case "spawn":
		return spawnCmd(ctx, c, args)
	}
	return usagef("unknown command %q", cmd)
}

func create(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	var cfg terminal.Config
	fs.StringVar(&cfg.Name, "name", "", "session name (required)")
	fs.StringVar(&cfg.WorkingDir, "cwd", "", "working directory")
	fs.StringVar(&cfg.Shell, "shell", "", "shell binary")
	fs.IntVar(&cfg.Cols, "cols", 0, "columns")
	fs.IntVar(&cfg.Rows, "rows", 0, "rows")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if cfg.Name == "" {
		return usagef("-name is required")
	}

	session, err := c.Create(ctx, cfg)
	if err != nil {
		return err
	}
	return printJSON(session)
}

// target is a session addressed by ID or by name.
type target struct {
	id   string
	name string
}

// parseTarget reads an optional -name flag; otherwise the first positional
// argument is the session ID.
func parseTarget(cmd string, args []string, extra func(*flag.FlagSet)) (target, []string, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var t target
	fs.StringVar(&t.name, "name", "", "session name")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return t, nil, usageError{msg: err.Error()}
	}
	rest := fs.Args()
	if t.name == "" {
		if len(rest) == 0 {
			return t, nil, usagef("expected a session ID or -name")
		}
		t.id, rest = rest[0], rest[1:]
	}
	return t, rest, nil
}

func get(ctx context.Context, c *client.Client, args []string) error {
	t, _, err := parseTarget("get", args, nil)
	if err != nil {
		return err
	}
	var session terminal.Session
	if t.name != "" {
		session, err = c.GetByName(ctx, t.name)
	} else {
		session, err = c.Get(ctx, t.id)
	}
	if err != nil {
		return err
	}
	return printJSON(session)
}

func execCmd(ctx context.Context, c *client.Client, args []string) error {
	t, rest, err := parseTarget("exec", args, nil)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return usagef("expected a command")
	}
	command := strings.Join(rest, " ")
	if t.name != "" {
		return c.ExecByName(ctx, t.name, command)
	}
	return c.Exec(ctx, t.id, command)
}

func waitCmd(ctx context.Context, c *client.Client, args []string) error {
	var timeout time.Duration
	t, rest, err := parseTarget("wait", args, func(fs *flag.FlagSet) {
		fs.DurationVar(&timeout, "timeout", 2*time.Second, "how long to collect output")
	})
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return usagef("expected a command")
	}
	command := strings.Join(rest, " ")

	var out string
	if t.name != "" {
		out, err = c.ExecWaitByName(ctx, t.name, command, timeout)
	} else {
		out, err = c.ExecWait(ctx, t.id, command, timeout)
	}
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func captureCmd(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 30*time.Second, "how long to wait for the command to finish")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() < 2 {
		return usagef("expected <id> <command>")
	}

	res, err := c.ExecCapture(ctx, fs.Arg(0), strings.Join(fs.Args()[1:], " "), *timeout)
	if err != nil {
		return err
	}
	if res.Output != "" {
		fmt.Println(res.Output)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("command exited with status %d", res.ExitCode)
	}
	return nil
}

func writeCmd(ctx context.Context, c *client.Client, args []string) error {
	t, rest, err := parseTarget("write", args, nil)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return usagef("expected exactly one data argument")
	}
	if t.name != "" {
		return c.WriteByName(ctx, t.name, rest[0])
	}
	return c.Write(ctx, t.id, rest[0])
}

func bufferCmd(ctx context.Context, c *client.Client, args []string) error {
	var lines int
	t, _, err := parseTarget("buffer", args, func(fs *flag.FlagSet) {
		fs.IntVar(&lines, "lines", client.AllLines, "only the last N lines (default all)")
	})
	if err != nil {
		return err
	}

	var out []string
	if t.name != "" {
		out, err = c.BufferByName(ctx, t.name, lines)
	} else {
		out, err = c.Buffer(ctx, t.id, lines)
	}
	if err != nil {
		return err
	}
	for _, line := range out {
		fmt.Println(line)
	}
	return nil
}

func toolCmd(ctx context.Context, c *client.Client, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usagef("expected <tool_id> [json params]")
	}
	params := map[string]any{}
	if len(args) == 2 {
		if err := sonic.UnmarshalString(args[1], &params); err != nil {
			return usagef("params must be a JSON object: %v", err)
		}
	}
	result, err := c.ExecuteTool(ctx, args[0], params)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v any) error {
	out, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}

func printSessions(sessions []terminal.Session) {
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return
	}
	fmt.Printf("%-26s  %-20s  %-8s  %-9s  %s\n", "ID", "NAME", "STATUS", "SIZE", "CWD")
	for _, s := range sessions {
		fmt.Printf("%-26s  %-20s  %-8s  %-9s  %s\n",
			s.ID, s.Name, s.Status, fmt.Sprintf("%dx%d", s.Cols, s.Rows), s.WorkingDir)
	}
}
