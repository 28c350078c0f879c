package api

import "sync"

// Pool hands out one client per gateway and token pair. Clients share the
// base configuration, including its cache backend.
type Pool struct {
	base Config

	mu      sync.Mutex
	clients map[poolKey]*Client
}

type poolKey struct {
	gateway string
	token   string
}

// NewPool creates a pool whose default client uses base.
func NewPool(base Config) (*Pool, error) {
	p := &Pool{base: base, clients: map[poolKey]*Client{}}
	if _, err := p.For("", ""); err != nil {
		return nil, err
	}
	return p, nil
}

// Default returns the client of the base gateway and token.
func (p *Pool) Default() *Client {
	c, _ := p.For("", "")
	return c
}

// For returns the client for gateway and token. Empty values fall back to
// the base configuration.
func (p *Pool) For(gateway, token string) (*Client, error) {
	if gateway == "" {
		gateway = p.base.Gateway
	}
	if token == "" {
		token = p.base.Token
	}
	key := poolKey{gateway: gateway, token: token}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}

	cfg := p.base
	cfg.Gateway = gateway
	cfg.Token = token
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	p.clients[key] = c
	return c, nil
}

// Len returns the number of clients created so far.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
