package transcribe

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

//go:embed assets/worker.py
var workerScript []byte

var (
	ErrWorkerExited = errors.New("faster-whisper worker exited")
	ErrProtocol     = errors.New("faster-whisper worker protocol error")
)

const closeTimeout = 5 * time.Second

// workerCommand builds the worker process. Tests replace it.
var workerCommand = func(python, script string, args ...string) *exec.Cmd {
	return exec.Command(python, append([]string{script}, args...)...)
}

// FasterWhisperConfig holds configuration for the faster-whisper backend.
type FasterWhisperConfig struct {
	PythonBin   string // default: "python3"
	Model       string // size name or path to a CTranslate2 model directory
	Device      string // cpu, cuda, auto
	ComputeType string // float32, float16, int8, ...
}

// FasterWhisper runs a single faster-whisper model inside a long-lived
// Python worker process and talks to it with line-delimited JSON.
// Calls are serialised on the worker pipe.
type FasterWhisper struct {
	cfg    FasterWhisperConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	script string

	slot   chan struct{}
	broken bool // guarded by slot

	waitOnce  sync.Once
	waitErr   error
	exited    chan struct{}
	closeOnce sync.Once

	stderrMu   sync.Mutex
	lastStderr string
}

type workerRequest struct {
	ID       string `json:"id"`
	Audio    string `json:"audio"`
	Language string `json:"language,omitempty"`
}

type workerResponse struct {
	ID       string    `json:"id"`
	Ready    *bool     `json:"ready,omitempty"`
	Error    string    `json:"error,omitempty"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
}

// StartFasterWhisper launches the worker and blocks until the model has
// loaded, the worker reports a load failure, or ctx is done.
func StartFasterWhisper(ctx context.Context, cfg FasterWhisperConfig) (*FasterWhisper, error) {
	if cfg.PythonBin == "" {
		cfg.PythonBin = "python3"
	}
	if cfg.Model == "" {
		return nil, errors.New("faster-whisper: model is required")
	}

	script, err := writeWorkerScript()
	if err != nil {
		return nil, err
	}

	args := []string{"--model", cfg.Model}
	if cfg.Device != "" {
		args = append(args, "--device", cfg.Device)
	}
	if cfg.ComputeType != "" {
		args = append(args, "--compute-type", cfg.ComputeType)
	}
	cmd := workerCommand(cfg.PythonBin, script, args...)

	f := &FasterWhisper{
		cfg:    cfg,
		cmd:    cmd,
		script: script,
		slot:   make(chan struct{}, 1),
		exited: make(chan struct{}),
	}

	if f.stdin, err = cmd.StdinPipe(); err != nil {
		os.Remove(script)
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(script)
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	f.stdout = bufio.NewReader(stdout)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		os.Remove(script)
		return nil, fmt.Errorf("worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		os.Remove(script)
		return nil, fmt.Errorf("start worker %s: %w", cfg.PythonBin, err)
	}
	go f.forwardStderr(stderr)

	ready := make(chan error, 1)
	go func() { ready <- f.awaitReady() }()

	select {
	case err := <-ready:
		if err != nil {
			f.kill()
			return nil, err
		}
	case <-ctx.Done():
		f.kill()
		return nil, fmt.Errorf("waiting for worker: %w", ctx.Err())
	}

	slog.Info("faster-whisper worker ready",
		"pid", cmd.Process.Pid, "model", cfg.Model, "device", cfg.Device, "compute_type", cfg.ComputeType)
	return f, nil
}

func writeWorkerScript() (string, error) {
	f, err := os.CreateTemp("", "whisper-worker-*.py")
	if err != nil {
		return "", fmt.Errorf("create worker script: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(workerScript); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write worker script: %w", err)
	}
	return f.Name(), nil
}

func (f *FasterWhisper) Name() string { return "faster-whisper:" + f.cfg.Model }

// Transcribe waits for the worker to be free, then runs one transcription.
// Once the request has been sent the call waits for its answer; ctx only
// bounds the wait for the worker.
func (f *FasterWhisper) Transcribe(ctx context.Context, req Request) (*Result, error) {
	select {
	case f.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-f.slot }()

	if f.broken {
		return nil, ErrWorkerExited
	}

	wr := workerRequest{ID: uuid.NewString(), Audio: req.FilePath, Language: req.Language}
	line, err := json.Marshal(wr)
	if err != nil {
		return nil, fmt.Errorf("marshal worker request: %w", err)
	}
	if _, err := f.stdin.Write(append(line, '\n')); err != nil {
		f.broken = true
		return nil, fmt.Errorf("%w: write request: %v", ErrWorkerExited, err)
	}

	resp, err := f.readResponse()
	if err != nil {
		f.broken = true
		return nil, err
	}
	if resp.ID != wr.ID {
		f.broken = true
		return nil, fmt.Errorf("%w: response id %q for request %q", ErrProtocol, resp.ID, wr.ID)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("faster-whisper: %s", resp.Error)
	}

	return &Result{
		Segments: trimSegments(resp.Segments),
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}

// Close asks the worker to exit by closing its stdin and kills it if it
// does not exit in time.
func (f *FasterWhisper) Close() error {
	f.closeOnce.Do(func() {
		_ = f.stdin.Close()
		go f.reap()
		select {
		case <-f.exited:
		case <-time.After(closeTimeout):
			_ = f.cmd.Process.Kill()
			<-f.exited
		}
		os.Remove(f.script)
		slog.Info("faster-whisper worker stopped", "model", f.cfg.Model, "exit", f.waitErr)
	})
	return nil
}

func (f *FasterWhisper) awaitReady() error {
	resp, err := f.readResponse()
	if err != nil {
		if tail := f.stderrTail(); tail != "" {
			return fmt.Errorf("%w (stderr: %s)", err, tail)
		}
		return err
	}
	if resp.Ready == nil {
		return fmt.Errorf("%w: expected ready message", ErrProtocol)
	}
	if !*resp.Ready {
		return fmt.Errorf("faster-whisper: load %s: %s", f.cfg.Model, resp.Error)
	}
	return nil
}

// readResponse returns the next JSON object from the worker. Lines that are
// not JSON objects are logged and skipped.
func (f *FasterWhisper) readResponse() (*workerResponse, error) {
	for {
		line, err := f.stdout.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWorkerExited, err)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '{' {
			slog.Debug("whisper worker stdout", "line", string(line))
			continue
		}
		var resp workerResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		return &resp, nil
	}
}

func (f *FasterWhisper) forwardStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		f.stderrMu.Lock()
		f.lastStderr = line
		f.stderrMu.Unlock()
		slog.Debug("whisper worker", "stderr", line)
	}
}

func (f *FasterWhisper) stderrTail() string {
	f.stderrMu.Lock()
	defer f.stderrMu.Unlock()
	return f.lastStderr
}

func (f *FasterWhisper) reap() {
	f.waitOnce.Do(func() {
		f.waitErr = f.cmd.Wait()
		close(f.exited)
	})
}

func (f *FasterWhisper) kill() {
	_ = f.cmd.Process.Kill()
	f.reap()
	os.Remove(f.script)
}
