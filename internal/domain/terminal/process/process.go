// Package process runs a shell attached to a pseudo-terminal.
package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// ErrSpawn wraps every pty allocation or process start failure.
var ErrSpawn = errors.New("spawn failed")

// ErrClosed is returned by Write and Resize after Close.
var ErrClosed = errors.New("process closed")

// defaultEnv is applied over the parent environment and under caller overrides.
var defaultEnv = map[string]string{
	"TERM":      "xterm-256color",
	"COLORTERM": "truecolor",
}

// Options configures Spawn.
type Options struct {
	Shell string
	Args  []string
	Dir   string
	Cols  uint16
	Rows  uint16
	Env   map[string]string
}

// Process owns one pty master and the child attached to its slave side.
// Reads and writes are serialized independently so a blocked reader never
// holds up a writer.
type Process struct {
	cmd  *exec.Cmd
	ptmx *os.File
	pid  int

	readMu  sync.Mutex
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
	exitCode  int
}

// Spawn starts opts.Shell on a new pty of the requested size.
func Spawn(opts Options) (*Process, error) {
	if opts.Shell == "" {
		return nil, fmt.Errorf("%w: shell is required", ErrSpawn)
	}

	cmd := exec.Command(opts.Shell, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = mergeEnv(os.Environ(), opts.Env)

	// StartWithSize closes the slave in this process once the child has it.
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: opts.Cols, Rows: opts.Rows})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, opts.Shell, err)
	}

	p := &Process{
		cmd:      cmd,
		ptmx:     ptmx,
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
		exitCode: -1,
	}
	if cmd.Process != nil {
		p.pid = cmd.Process.Pid
	}

	go p.wait()

	return p, nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	p.exitCode = code
	close(p.done)
}

// Pid returns the child's process id, or 0 if unknown.
func (p *Process) Pid() int {
	return p.pid
}

// Done is closed once the child has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitCode returns the child's exit status. Only meaningful after Done is closed;
// -1 means the child was killed by a signal or never reported a status.
func (p *Process) ExitCode() int {
	select {
	case <-p.done:
		return p.exitCode
	default:
		return -1
	}
}

// Read reads output from the pty master. End of output is reported as io.EOF,
// including the EIO Linux returns once the slave side has gone away.
func (p *Process) Read(buf []byte) (int, error) {
	p.readMu.Lock()
	defer p.readMu.Unlock()

	n, err := p.ptmx.Read(buf)
	if err != nil && isEndOfStream(err) {
		err = io.EOF
	}
	return n, err
}

// Write sends raw input to the child. No newline is added.
func (p *Process) Write(data []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	select {
	case <-p.closed:
		return 0, ErrClosed
	default:
	}
	return p.ptmx.Write(data)
}

// Resize applies a new window size to the live pty.
func (p *Process) Resize(cols, rows uint16) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}
	return pty.Setsize(p.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

// Close kills the child and releases the master. Safe to call more than once.
func (p *Process) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.cmd.Process != nil {
			// The child may already be gone; that is fine.
			_ = p.cmd.Process.Kill()
		}
		err = p.ptmx.Close()
	})
	return err
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}

// mergeEnv layers defaultEnv and then overrides on top of base. Later keys win
// and each key appears once.
func mergeEnv(base []string, overrides map[string]string) []string {
	values := make(map[string]string, len(base)+len(defaultEnv)+len(overrides))
	order := make([]string, 0, len(base)+len(defaultEnv)+len(overrides))

	set := func(key, value string) {
		if _, ok := values[key]; !ok {
			order = append(order, key)
		}
		values[key] = value
	}

	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		set(key, value)
	}
	for _, layer := range []map[string]string{defaultEnv, overrides} {
		keys := make([]string, 0, len(layer))
		for k := range layer {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			set(k, layer[k])
		}
	}

	env := make([]string, 0, len(order))
	for _, key := range order {
		env = append(env, key+"="+values[key])
	}
	return env
}
