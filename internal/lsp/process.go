package lsp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"go.lsp.dev/jsonrpc2"

	"github.com/standardbeagle/unitsync/internal/debug"
)

// stopGrace is how long a server gets to exit after shutdown before it is killed
const stopGrace = 3 * time.Second

// stdio joins a child's stdout and stdin into one stream
type stdio struct {
	io.ReadCloser
	io.WriteCloser
}

func (s stdio) Close() error {
	return errors.Join(s.WriteCloser.Close(), s.ReadCloser.Close())
}

// Process is a language server running as a child process
type Process struct {
	cmd    *exec.Cmd
	client *Client
	waited chan error
}

// Spawn starts command in dir and connects a client to its stdio. The server's
// stderr is forwarded to the debug log.
func Spawn(ctx context.Context, command []string, dir string, timeout time.Duration) (*Process, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("empty language server command")
	}
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = dir
	cmd.Stderr = debugWriter{prefix: command[0]}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command[0], err)
	}
	debug.Log(debug.LSP, "spawned %v in %s (pid %d)\n", command, dir, cmd.Process.Pid)

	p := &Process{cmd: cmd, waited: make(chan error, 1)}
	go func() { p.waited <- cmd.Wait() }()

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(stdio{ReadCloser: stdout, WriteCloser: stdin}))
	p.client = NewClient(ctx, conn, timeout)
	return p, nil
}

// Client returns the connected client
func (p *Process) Client() *Client {
	return p.client
}

// Stop shuts the server down politely and kills it if it does not exit in time
func (p *Process) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, stopGrace)
	defer cancel()
	err := p.client.Shutdown(shutdownCtx)

	select {
	case <-p.waited:
	case <-time.After(stopGrace):
		debug.Log(debug.LSP, "killing %s after shutdown timeout\n", p.cmd.Path)
		if killErr := p.cmd.Process.Kill(); killErr != nil && err == nil {
			err = killErr
		}
		<-p.waited
	}
	return err
}

type debugWriter struct {
	prefix string
}

func (w debugWriter) Write(p []byte) (int, error) {
	debug.Log(debug.LSP, "[%s] %s", w.prefix, p)
	return len(p), nil
}
