package session

import (
	"context"
	"errors"
	"sync"
)

var ErrNotSignedIn = errors.New("not signed in")

type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Identity is the external identity collaborator.
type Identity interface {
	SignIn(ctx context.Context, creds Credentials) (Session, string, error)
	SignOut(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (Session, error)
}

// Provider tracks the session of one client (an HTTP request or a websocket
// connection) and notifies observers when it changes.
type Provider struct {
	identity Identity

	mu        sync.Mutex
	current   Session
	token     string
	listeners map[int]func(Session)
	nextID    int
}

func NewProvider(identity Identity) *Provider {
	return &Provider{
		identity:  identity,
		listeners: make(map[int]func(Session)),
	}
}

// SignIn authenticates with credentials and makes the result current.
func (p *Provider) SignIn(ctx context.Context, creds Credentials) (Session, string, error) {
	s, token, err := p.identity.SignIn(ctx, creds)
	if err != nil {
		return Anonymous, "", err
	}
	p.set(s, token)
	return s, token, nil
}

// Restore resumes a session from a previously issued token.
func (p *Provider) Restore(ctx context.Context, token string) (Session, error) {
	s, err := p.identity.Resolve(ctx, token)
	if err != nil {
		return Anonymous, err
	}
	p.set(s, token)
	return s, nil
}

// SignOut revokes the current token and switches to the anonymous session.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	if token == "" {
		return ErrNotSignedIn
	}
	if err := p.identity.SignOut(ctx, token); err != nil {
		return err
	}
	p.set(Anonymous, "")
	return nil
}

func (p *Provider) Current() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Provider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// OnSessionChange calls fn with the current session right away and again on
// every change. The returned func removes the listener.
func (p *Provider) OnSessionChange(fn func(Session)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	current := p.current
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) set(s Session, token string) {
	p.mu.Lock()
	changed := p.current != s
	p.current = s
	p.token = token
	listeners := make([]func(Session), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(s)
	}
}
