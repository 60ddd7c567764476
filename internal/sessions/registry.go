// Package sessions keeps the open editing sessions of the server. Each
// session is owned by one Entry whose mutex serializes every request for it,
// so commands for one board run one at a time in arrival order.
package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/editor"
	"github.com/starford/menuboard/internal/models"
)

// Hooks receive registry activity; either field may be nil.
type Hooks struct {
	Commit func(reason string)
	Count  func(open int)
}

// View is a point-in-time copy of a session's state.
type View struct {
	ID         string          `json:"id"`
	TemplateID string          `json:"templateId,omitempty"`
	Version    int             `json:"version"`
	State      editor.State    `json:"state"`
	Selection  []string        `json:"selection"`
	CanUndo    bool            `json:"canUndo"`
	HistoryLen int             `json:"historyLength"`
	Viewport   editor.Viewport `json:"viewport"`
	Document   models.Document `json:"document"`
}

// Entry is one registered session.
type Entry struct {
	id string

	mu         sync.Mutex
	sess       *editor.Session
	templateID string
	lastUsed   time.Time
	subs       map[chan View]struct{}
}

// ID returns the session id.
func (e *Entry) ID() string { return e.id }

// Do runs fn with exclusive access to the session. Subscribers receive a
// fresh View when fn changed the session's version.
func (e *Entry) Do(fn func(s *editor.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = time.Now()
	before := e.sess.Version()
	err := fn(e.sess)
	if e.sess.Version() != before {
		e.broadcast(e.view())
	}
	return err
}

// View returns the current state.
func (e *Entry) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view()
}

// TemplateID returns the stored template this session edits, if any.
func (e *Entry) TemplateID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.templateID
}

// SetTemplateID links the session to a stored template after a first save.
func (e *Entry) SetTemplateID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templateID = id
}

// Subscribe returns a channel of views sent after each change and a cancel
// func. Slow subscribers miss intermediate views rather than block editing.
func (e *Entry) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 16)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
			e.mu.Unlock()
		})
	}
}

func (e *Entry) view() View {
	return View{
		ID:         e.id,
		TemplateID: e.templateID,
		Version:    e.sess.Version(),
		State:      e.sess.State(),
		Selection:  e.sess.Selection(),
		CanUndo:    e.sess.CanUndo(),
		HistoryLen: e.sess.HistoryLen(),
		Viewport:   e.sess.Viewport(),
		Document:   e.sess.Document(),
	}
}

func (e *Entry) broadcast(v View) {
	for ch := range e.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

func (e *Entry) closeSubs() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		close(ch)
	}
	e.subs = map[chan View]struct{}{}
}

func (e *Entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

// Registry owns the open sessions.
type Registry struct {
	cfg    editor.Config
	ttl    time.Duration
	hooks  Hooks
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates a registry. Sessions idle longer than ttl are evicted
// by Run; ttl <= 0 disables eviction.
func NewRegistry(cfg editor.Config, ttl time.Duration, hooks Hooks, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:     cfg,
		ttl:     ttl,
		hooks:   hooks,
		logger:  logger,
		entries: make(map[string]*Entry),
	}
}

// Open starts a session on doc. templateID may be empty for unsaved boards.
func (r *Registry) Open(doc models.Document, templateID string) *Entry {
	sess := editor.New(doc, r.cfg)
	if r.hooks.Commit != nil {
		sess.OnCommit(r.hooks.Commit)
	}
	e := &Entry{
		id:         uuid.New().String(),
		sess:       sess,
		templateID: templateID,
		lastUsed:   time.Now(),
		subs:       map[chan View]struct{}{},
	}

	r.mu.Lock()
	r.entries[e.id] = e
	n := len(r.entries)
	r.mu.Unlock()

	r.count(n)
	r.logger.Debug("sessions: opened", slog.String("id", e.id), slog.String("template", templateID))
	return e
}

// Get returns a session by id.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return e, nil
}

// Close removes a session and closes its subscriptions.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	n := len(r.entries)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	e.closeSubs()
	r.count(n)
	r.logger.Debug("sessions: closed", slog.String("id", id))
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Evict closes every session idle since before cutoff and returns how many
// were closed.
func (r *Registry) Evict(cutoff time.Time) int {
	r.mu.RLock()
	var stale []string
	for id, e := range r.entries {
		if e.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if r.Close(id) == nil {
			n++
		}
	}
	return n
}

// Run evicts idle sessions until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	if r.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	tick := r.ttl / 4
	if tick < time.Second {
		tick = time.Second
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			if n := r.Evict(now.Add(-r.ttl)); n > 0 {
				r.logger.Info("sessions: evicted idle", slog.Int("count", n))
			}
		}
	}
}

func (r *Registry) count(n int) {
	if r.hooks.Count != nil {
		r.hooks.Count(n)
	}
}
