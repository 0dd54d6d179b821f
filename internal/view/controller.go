package view

import (
	"context"
	"sync"

	"github.com/andywolf/issuelens/internal/logging"
)

// State is what a view displays at a given moment.
type State struct {
	Markdown string
	Loading  bool
	Err      error
}

// Controller runs localization for one displayed document. A new Load
// supersedes the previous one; results of superseded or closed passes are
// discarded.
type Controller struct {
	localizer Localizer
	logger    *logging.Logger
	onChange  func(State)

	mu         sync.Mutex
	state      State
	generation int
	cancel     context.CancelFunc
	done       chan struct{}
	closed     bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithOnChange registers a callback invoked after each published state.
func WithOnChange(fn func(State)) ControllerOption {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// WithControllerLogger sets the logger used to report localization failures.
func WithControllerLogger(logger *logging.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a Controller around localizer.
func NewController(localizer Localizer, opts ...ControllerOption) *Controller {
	c := &Controller{
		localizer: localizer,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load shows doc immediately in the loading state and starts localizing it
// in the background.
func (c *Controller) Load(ctx context.Context, doc string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	c.generation++
	gen := c.generation
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.state = State{Markdown: doc, Loading: true}
	c.mu.Unlock()

	c.notify(State{Markdown: doc, Loading: true})

	go func() {
		defer close(done)
		defer cancel()

		out, err := c.localizer.Localize(ctx, doc)
		next := State{Markdown: out, Err: err}
		if err != nil {
			c.logger.Warning("failed to localize images: %v", err)
			if out == "" {
				next.Markdown = doc
			}
		}
		c.publish(gen, next)
	}()
}

func (c *Controller) publish(gen int, next State) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()

	c.notify(next)
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until the latest Load finishes or ctx is done, and returns
// the resulting state.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
	return c.State(), nil
}

// Close cancels any running pass. No state is published afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
}
