package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// stdioTransport speaks newline-delimited JSON over a subprocess's stdin
// and stdout (spec §4.4). stdin writes are serialized by a mutex; a single
// reader goroutine owns stdout exclusively and dispatches each line to the
// client via deliver.
type stdioTransport struct {
	writeMu sync.Mutex
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	cmd     *exec.Cmd // nil when constructed directly from pipes (tests)

	closeOnce sync.Once
	readerDone chan struct{}
}

// NewStdioClient spawns cmd with piped stdin/stdout (stderr inherited from
// the parent process) and returns a Client speaking newline-delimited
// JSON-RPC over those pipes.
func NewStdioClient(cmd *exec.Cmd) (*Client, error) {
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mcp: start tool server: %w", err)
	}

	t := &stdioTransport{stdin: stdin, stdout: stdout, cmd: cmd, readerDone: make(chan struct{})}
	client := newClient(t)
	go t.readLoop(client)
	return client, nil
}

// newStdioClientFromPipes builds a stdio-framed Client directly over an
// already-connected reader/writer pair, bypassing process management. Used
// by tests to exercise the framing and correlation logic without spawning
// a real subprocess.
func newStdioClientFromPipes(stdin io.WriteCloser, stdout io.ReadCloser) *Client {
	t := &stdioTransport{stdin: stdin, stdout: stdout, readerDone: make(chan struct{})}
	client := newClient(t)
	go t.readLoop(client)
	return client
}

func (t *stdioTransport) send(ctx context.Context, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("mcp: write to stdin: %w", err)
	}
	return nil
}

func (t *stdioTransport) readLoop(client *Client) {
	defer close(t.readerDone)
	scanner := bufio.NewScanner(t.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		client.deliver(resp)
	}
}

func (t *stdioTransport) shutdown() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.stdin.Close()
		if t.cmd != nil && t.cmd.Process != nil {
			// Give the subprocess a chance to exit on its own (which
			// closes its stdout and unblocks the reader); otherwise force
			// it and close stdout ourselves.
			select {
			case <-t.readerDone:
			case <-time.After(500 * time.Millisecond):
				_ = t.cmd.Process.Kill()
				<-t.readerDone
			}
			_ = t.cmd.Wait()
			_ = t.stdout.Close()
			return
		}
		// No subprocess to close stdout for us; do it ourselves to
		// unblock the reader goroutine.
		_ = t.stdout.Close()
		<-t.readerDone
	})
	return err
}
