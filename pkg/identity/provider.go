package identity

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Identity is the signed-in principal, immutable for the session. The
// controller only ever consumes the ID; the rest is display state.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarRef   string `json:"avatar_ref"`
}

type EventKind string

const (
	EventSignedIn  EventKind = "signed-in"
	EventSignedOut EventKind = "signed-out"
	EventChanged   EventKind = "changed"
)

// Event is one lifecycle notification. Identity is nil for signed-out.
type Event struct {
	Kind     EventKind
	Identity *Identity
}

// Provider supplies the current identity and its lifecycle events.
// Components take the identity as an explicit argument rather than
// looking it up ambiently; the provider exists so long-lived surfaces
// (sync adapter, CLI loop) can react to sign-in changes.
type Provider interface {
	Current() (*Identity, bool)
	Events() <-chan Event
	Close() error
}

// StaticProvider is an in-process Provider whose identity is changed
// through explicit SignIn/SignOut/Update calls. It is what the CLI and
// the tests use; OAuth/session acquisition lives outside the controller.
type StaticProvider struct {
	mu      sync.Mutex
	current *Identity
	events  chan Event
	closed  bool
}

var _ Provider = (*StaticProvider)(nil)

const eventBufferSize = 16

func NewStaticProvider(id *Identity) *StaticProvider {
	return &StaticProvider{
		current: id,
		events:  make(chan Event, eventBufferSize),
	}
}

func (p *StaticProvider) Current() (*Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, false
	}
	id := *p.current
	return &id, true
}

func (p *StaticProvider) Events() <-chan Event {
	return p.events
}

func (p *StaticProvider) SignIn(id Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = &id
	p.emit(Event{Kind: EventSignedIn, Identity: &id})
}

func (p *StaticProvider) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	p.emit(Event{Kind: EventSignedOut})
}

func (p *StaticProvider) Update(id Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = &id
	p.emit(Event{Kind: EventChanged, Identity: &id})
}

func (p *StaticProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	return nil
}

// emit must be called with the mutex held. A full buffer drops the event
// rather than blocking the caller.
func (p *StaticProvider) emit(ev Event) {
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		log.Warn().Str("kind", string(ev.Kind)).Msg("identity event buffer full, dropping event")
	}
}
