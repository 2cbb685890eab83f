package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"resident/internal/protocol"
)

// ProcessOptions configures StartProcess.
type ProcessOptions struct {
	Codec  protocol.Codec // must match the daemon's --protocol; nil selects XML
	Stderr io.Writer      // daemon logs; nil discards them
	Env    []string       // nil inherits the current environment
}

// Process is a daemon child process with a Client attached to its streams.
type Process struct {
	*Client
	cmd *exec.Cmd
}

// StartProcess launches binary with args and connects a Client to it.
func StartProcess(ctx context.Context, binary string, args []string, opts ProcessOptions) (*Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = opts.Env
	cmd.Stderr = opts.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("daemon stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("daemon stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start daemon %s: %w", binary, err)
	}
	return &Process{
		Client: New(stdin, stdout, opts.Codec),
		cmd:    cmd,
	}, nil
}

// Pid returns the daemon's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait ends the session and waits for the daemon to exit.
func (p *Process) Wait() error {
	closeErr := p.Client.Close()
	waitErr := p.cmd.Wait()
	return errors.Join(closeErr, waitErr)
}

// Kill terminates the daemon without the exit handshake.
func (p *Process) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil {
		return err
	}
	_ = p.cmd.Wait()
	return nil
}
