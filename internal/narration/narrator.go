package narration

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/voice"
)

// Narrator owns the current session. Starting a new request stops the
// previous session first, so only one session ever holds the output.
type Narrator struct {
	speaker Speaker
	catalog *voice.Catalog
	opts    []Option
	logger  *log.Logger

	mu          sync.Mutex
	current     *Session
	gen         uint64
	cancelLoad  context.CancelFunc
	unsubscribe func()
}

// Ticket is a reservation for the next session. Only the newest ticket may
// load; Reserve or Stop supersede it and cancel its context.
type Ticket struct {
	n   *Narrator
	gen uint64
	ctx context.Context
}

// NewNarrator returns a Narrator speaking through speaker. When catalog is
// not nil, sessions resolve voices from it and pick up its changes.
func NewNarrator(speaker Speaker, catalog *voice.Catalog, opts ...Option) *Narrator {
	n := &Narrator{
		speaker: speaker,
		catalog: catalog,
		opts:    opts,
		logger:  log.Default().WithPrefix("narrator"),
	}
	if catalog != nil {
		n.unsubscribe = catalog.Subscribe(n.voicesChanged)
	}
	return n
}

// Reserve stops the current session, supersedes any outstanding ticket and
// returns a new one. Callers that prepare content before loading reserve
// first, so a slow earlier load can never take over the output.
func (n *Narrator) Reserve(ctx context.Context) Ticket {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.supersedeLocked()
	lctx, cancel := context.WithCancel(ctx)
	n.cancelLoad = cancel
	return Ticket{n: n, gen: n.gen, ctx: lctx}
}

// Start replaces the current session with one for req and starts it.
func (n *Narrator) Start(ctx context.Context, req Request) (*Session, error) {
	return n.Reserve(ctx).Start(req)
}

// Load replaces the current session with an idle one for req.
func (n *Narrator) Load(ctx context.Context, req Request) (*Session, error) {
	return n.Reserve(ctx).Load(req)
}

// Gen identifies the ticket among the narrator's reservations.
func (t Ticket) Gen() uint64 { return t.gen }

// Context is cancelled once the ticket is superseded.
func (t Ticket) Context() context.Context { return t.ctx }

// Load makes an idle session for req the current one, unless the ticket was
// superseded.
func (t Ticket) Load(req Request) (*Session, error) {
	n := t.n
	n.mu.Lock()
	defer n.mu.Unlock()

	if t.gen != n.gen {
		return nil, NewNarrationError(CodeSuperseded, "load", nil).WithContext("language", req.Language)
	}
	if n.current != nil {
		_ = n.current.Stop()
		n.current = nil
	}

	opts := append([]Option(nil), n.opts...)
	if n.catalog != nil {
		opts = append(opts, WithVoices(n.catalog.Voices()))
	}
	s, err := NewSession(t.ctx, req, n.speaker, opts...)
	if err != nil {
		return nil, err
	}
	n.current = s
	n.logger.Debug("session loaded", "session", s.ID(), "language", req.Language)
	return s, nil
}

// Start loads req and plays it. A ticket superseded before or during the
// start has had its session stopped; Start then reports ErrSuperseded.
func (t Ticket) Start(req Request) (*Session, error) {
	s, err := t.Load(req)
	if err != nil {
		return nil, err
	}
	err = s.Start()
	if t.superseded() {
		return nil, NewNarrationError(CodeSuperseded, "start", err).WithContext("session", s.ID())
	}
	return s, err
}

func (t Ticket) superseded() bool {
	t.n.mu.Lock()
	defer t.n.mu.Unlock()
	return t.gen != t.n.gen
}

func (n *Narrator) supersedeLocked() {
	n.gen++
	if n.cancelLoad != nil {
		n.cancelLoad()
		n.cancelLoad = nil
	}
	if n.current != nil {
		_ = n.current.Stop()
		n.current = nil
	}
}

// Current returns the active session, or nil.
func (n *Narrator) Current() *Session {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Stop stops the current session, if any, and supersedes any outstanding
// ticket.
func (n *Narrator) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.supersedeLocked()
	return nil
}

// Close stops the current session and detaches from the catalog.
func (n *Narrator) Close() error {
	if n.unsubscribe != nil {
		n.unsubscribe()
	}
	return n.Stop()
}

func (n *Narrator) voicesChanged(v []voice.Candidate) {
	if s := n.Current(); s != nil {
		s.SetVoices(v)
	}
}
