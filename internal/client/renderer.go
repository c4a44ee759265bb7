package client

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/a-h/templ"

	"github.com/toolinger/toolinger/internal/logging"
	"github.com/toolinger/toolinger/internal/view"
)

// Status of the renderer's current request.
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is what the renderer currently shows.
type State struct {
	File   string
	Status Status
	HTML   string
	Err    error
}

// Fetcher retrieves sanitized markup for a file.
type Fetcher interface {
	Fetch(ctx context.Context, file string) (string, error)
}

// Renderer displays the article for the most recently requested file.
// Responses for files requested earlier are discarded whatever order they
// complete in.
type Renderer struct {
	fetcher Fetcher
	logger  logging.Logger

	mu          sync.Mutex
	generation  uint64
	state       State
	cancel      context.CancelFunc
	settled     chan struct{}
	subscribers []chan State
}

// NewRenderer creates a renderer backed by fetcher.
func NewRenderer(fetcher Fetcher, logger logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	settled := make(chan struct{})
	close(settled)
	return &Renderer{
		fetcher: fetcher,
		logger:  logger.WithComponent("client"),
		settled: settled,
	}
}

// Load switches the renderer to file and fetches it in the background. The
// previous request, if still running, is cancelled and its result ignored.
func (r *Renderer) Load(ctx context.Context, file string) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	gen := r.generation
	fetchCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	settled := make(chan struct{})
	r.settled = settled
	r.setStateLocked(State{File: file, Status: StatusLoading})
	r.mu.Unlock()

	go func() {
		defer cancel()
		html, err := r.fetcher.Fetch(fetchCtx, file)
		r.apply(gen, file, html, err, settled)
	}()
}

func (r *Renderer) apply(gen uint64, file, html string, err error, settled chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer close(settled)

	if gen != r.generation {
		r.logger.Debug(context.Background(), "Discarding stale article response", "file", file)
		return
	}

	if err != nil {
		r.logger.Warn(context.Background(), err, "Failed to load article", "file", logging.SanitizeForLog(file))
		r.setStateLocked(State{File: file, Status: StatusError, Err: err})
	} else {
		r.setStateLocked(State{File: file, Status: StatusSuccess, HTML: html})
	}
	r.cancel = nil
}

// setStateLocked must be called with mu held.
func (r *Renderer) setStateLocked(s State) {
	r.state = s
	for _, ch := range r.subscribers {
		// Subscribers only need the latest state.
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// State returns a snapshot of the current state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe returns a channel that receives the latest state after every
// change. Slow readers see only the most recent state.
func (r *Renderer) Subscribe() <-chan State {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan State, 1)
	r.subscribers = append(r.subscribers, ch)
	return ch
}

// Wait blocks until the most recent Load settles or ctx is done, and
// returns the state at that point.
func (r *Renderer) Wait(ctx context.Context) (State, error) {
	for {
		r.mu.Lock()
		settled := r.settled
		r.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return r.State(), ctx.Err()
		}

		// A newer Load may have started while we waited.
		r.mu.Lock()
		current := r.settled == settled
		state := r.state
		r.mu.Unlock()
		if current {
			return state, nil
		}
	}
}

// Close cancels the request in flight.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Component renders the current state: the themed article, an inline error
// or the loading placeholder. The markup is written unescaped because the
// endpoint has already sanitized it.
func (r *Renderer) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		state := r.State()

		if err := view.Stylesheet().Render(ctx, w); err != nil {
			return err
		}

		switch state.Status {
		case StatusSuccess:
			return view.Article(state.File, state.HTML).Render(ctx, w)
		case StatusError:
			return view.ErrorMessage(displayError(state.Err)).Render(ctx, w)
		default:
			return view.Loading().Render(ctx, w)
		}
	})
}

func displayError(err error) string {
	var fe *FetchError
	switch {
	case errors.As(err, &fe):
		return fe.Message
	case err == nil:
		return "Unknown error"
	default:
		return err.Error()
	}
}
