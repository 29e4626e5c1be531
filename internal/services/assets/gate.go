// Package assets issues short-lived opaque tokens that stand in for
// protected files, so clients never learn the real file names.
package assets

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/clock"
	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Config holds gate settings
type Config struct {
	TTL         time.Duration
	TokenLength int
}

// DefaultConfig returns default gate settings
func DefaultConfig() Config {
	return Config{
		TTL:         10 * time.Minute,
		TokenLength: 32,
	}
}

type grant struct {
	resourceRef string
	expiresAt   time.Time
}

// Gate maps tokens to resources until they expire
type Gate struct {
	clock  clock.Clock
	random random.Random
	logger *slog.Logger
	cfg    Config

	mu     sync.RWMutex
	grants map[string]grant
}

// New creates a Gate
func New(clk clock.Clock, rnd random.Random, logger *slog.Logger, cfg Config) *Gate {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = DefaultConfig().TokenLength
	}
	return &Gate{
		clock:  clk,
		random: rnd,
		logger: logger.With(slog.String("component", "assets")),
		cfg:    cfg,
		grants: make(map[string]grant),
	}
}

// Issue mints a token for resourceRef valid for the configured TTL
func (g *Gate) Issue(resourceRef string) string {
	return g.IssueFor(resourceRef, 0)
}

// IssueFor mints a token that stays valid for at least lifetime, and never
// less than the configured TTL
func (g *Gate) IssueFor(resourceRef string, lifetime time.Duration) string {
	ttl := max(g.cfg.TTL, lifetime)

	g.mu.Lock()
	defer g.mu.Unlock()

	token := g.random.String(g.cfg.TokenLength, tokenAlphabet)
	for i := 0; token == "" || g.exists(token); i++ {
		// Collisions are astronomically unlikely; extend rather than loop forever
		token += g.random.String(4, tokenAlphabet)
		if i > 8 {
			break
		}
	}

	g.grants[token] = grant{
		resourceRef: resourceRef,
		expiresAt:   g.clock.Now().Add(ttl),
	}
	return token
}

func (g *Gate) exists(token string) bool {
	_, ok := g.grants[token]
	return ok
}

// Resolve returns the resource for a live token. Unknown and expired tokens
// both yield ErrAssetNotFound.
func (g *Gate) Resolve(token string) (string, error) {
	g.mu.RLock()
	gr, ok := g.grants[token]
	g.mu.RUnlock()

	if !ok || !g.clock.Now().Before(gr.expiresAt) {
		return "", model.ErrAssetNotFound
	}
	return gr.resourceRef, nil
}

// Revoke drops a token immediately
func (g *Gate) Revoke(token string) {
	g.mu.Lock()
	delete(g.grants, token)
	g.mu.Unlock()
}

// Sweep removes expired grants and returns how many were removed
func (g *Gate) Sweep() int {
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for token, gr := range g.grants {
		if !now.Before(gr.expiresAt) {
			delete(g.grants, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored grants, expired or not
func (g *Gate) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.grants)
}

// Run sweeps every interval until ctx is cancelled
func (g *Gate) Run(ctx context.Context, interval time.Duration) {
	for {
		tick := make(chan struct{})
		timer := g.clock.AfterFunc(interval, func() { close(tick) })

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-tick:
			if n := g.Sweep(); n > 0 {
				g.logger.Debug("swept expired asset tokens", slog.Int("removed", n))
			}
		}
	}
}
