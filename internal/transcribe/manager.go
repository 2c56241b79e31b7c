package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrManagerClosed is returned by Get after Close.
var ErrManagerClosed = errors.New("model manager closed")

// Loader constructs the model. It is called at most once per successful load.
type Loader func(ctx context.Context) (Model, error)

// Manager owns the process-wide model instance. The model is built lazily on
// the first Get and kept until Close; a failed load leaves the manager
// empty so the next Get tries again.
//
// A load runs in its own goroutine and is not cancelled by the caller that
// started it. Callers only stop waiting when their context ends.
type Manager struct {
	mu     sync.Mutex
	load   Loader
	model  Model
	call   *loadCall // non-nil while a load is in flight
	closed bool
}

type loadCall struct {
	done  chan struct{}
	model Model
	err   error
}

func NewManager(load Loader) *Manager {
	return &Manager{load: load}
}

// Get returns the shared model, loading it on first use.
func (m *Manager) Get(ctx context.Context) (Model, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if m.model != nil {
		model := m.model
		m.mu.Unlock()
		return model, nil
	}
	c := m.call
	if c == nil {
		c = &loadCall{done: make(chan struct{})}
		m.call = c
		go m.run(context.WithoutCancel(ctx), c)
	}
	m.mu.Unlock()

	select {
	case <-c.done:
		return c.model, c.err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for model: %w", ctx.Err())
	}
}

func (m *Manager) run(ctx context.Context, c *loadCall) {
	start := time.Now()
	model, err := m.safeLoad(ctx)

	m.mu.Lock()
	m.call = nil
	switch {
	case err != nil:
		c.err = fmt.Errorf("load model: %w", err)
	case m.closed:
		c.err = ErrManagerClosed
		model.Close()
	default:
		m.model = model
		c.model = model
		slog.Info("model loaded", "model", model.Name(), "elapsed", time.Since(start).String())
	}
	m.mu.Unlock()
	close(c.done)
}

func (m *Manager) safeLoad(ctx context.Context) (model Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.load(ctx)
}

// Loaded reports whether the model has been constructed. It never waits
// for a load in flight.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model != nil
}

// Close releases the model. A load still in flight is closed when it
// finishes. The manager must not be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.model == nil {
		return nil
	}
	return m.model.Close()
}
