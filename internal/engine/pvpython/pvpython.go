// Package pvpython drives ParaView through a pvpython subprocess running an
// embedded bridge script. Requests and responses are JSON lines over the
// child's stdin and stdout.
package pvpython

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

//go:embed bridge.py
var bridgeScript []byte

// EnvPVPython names the environment variable that overrides the interpreter.
const EnvPVPython = "PVPYTHON"

const shutdownTimeout = 5 * time.Second

// ErrPVPythonNotFound is returned when no pvpython interpreter can be located.
var ErrPVPythonNotFound = errors.New("pvpython not found")

// Config selects and configures the interpreter.
type Config struct {
	// PVPython is an explicit interpreter path; it wins over $PVPYTHON and PATH.
	PVPython string
	// Args are passed to pvpython before the bridge script.
	Args []string
	// Offscreen forces offscreen rendering for every view.
	Offscreen bool
}

// Engine is a running pvpython bridge.
type Engine struct {
	client  *Client
	cmd     *exec.Cmd
	stdin   io.Closer
	stderr  io.Closer
	// dir holds the bridge script and the generated .series indexes.
	dir     string
	caps    engine.Capabilities
	version string
}

// Resolve finds the interpreter: the explicit path, then $PVPYTHON, then PATH.
func Resolve(explicit string) (string, error) {
	candidates := []string{explicit, os.Getenv(EnvPVPython), "pvpython"}
	var tried []string
	for _, c := range candidates {
		if c == "" {
			continue
		}
		tried = append(tried, c)
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (tried %v); install ParaView or set $%s", ErrPVPythonNotFound, tried, EnvPVPython)
}

// Start launches pvpython with the bridge script and completes the handshake.
func Start(ctx context.Context, cfg Config) (*Engine, error) {
	path, err := Resolve(cfg.PVPython)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "render-vtps-bridge-*")
	if err != nil {
		return nil, err
	}
	script, err := writeScript(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	args := append([]string{}, cfg.Args...)
	if cfg.Offscreen {
		args = append(args, "--force-offscreen-rendering")
	}
	args = append(args, script)

	cmd := exec.CommandContext(ctx, path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	stderr := logrus.WithField("component", "pvpython").WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr

	logrus.WithField("pvpython", path).Debug("Starting rendering engine")
	if err := cmd.Start(); err != nil {
		_ = stderr.Close()
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("start %s: %w", path, err)
	}

	e := &Engine{
		client: NewClient(stdout, stdin),
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		dir:    dir,
	}
	if err := e.handshake(ctx); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("pvpython handshake: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"version":      e.version,
		"capabilities": fmt.Sprintf("%+v", e.caps),
	}).Debug("Rendering engine ready")
	return e, nil
}

func writeScript(dir string) (string, error) {
	path := filepath.Join(dir, "bridge.py")
	if err := os.WriteFile(path, bridgeScript, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// workDir returns the directory for generated files, creating it on first use.
func (e *Engine) workDir() (string, error) {
	if e.dir == "" {
		dir, err := os.MkdirTemp("", "render-vtps-bridge-*")
		if err != nil {
			return "", err
		}
		e.dir = dir
	}
	return e.dir, nil
}

// Close asks the bridge to quit, waits for the process and removes the work
// directory. A bridge that does not exit in time is killed.
func (e *Engine) Close() error {
	defer os.RemoveAll(e.dir)
	defer e.stderr.Close()

	done := make(chan error, 1)
	go func() {
		_ = e.client.Call(context.Background(), "quit", nil, nil)
		_ = e.stdin.Close()
		done <- e.cmd.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(shutdownTimeout):
		_ = e.cmd.Process.Kill()
		return <-done
	}
}
