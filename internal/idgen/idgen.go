// Package idgen draws short random identifiers that are unique within a collection.
package idgen

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
)

const (
	Alphabet           = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultLength      = 6
	DefaultMaxAttempts = 32
)

// ErrSpaceExhausted is returned when every attempt collided with an existing id
var ErrSpaceExhausted = errors.New("idgen: identifier space exhausted")

// Generator produces identifiers of a fixed length with an optional prefix.
// It is safe for concurrent use.
type Generator struct {
	prefix      string
	length      int
	maxAttempts int

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Generator)

func WithPrefix(prefix string) Option {
	return func(g *Generator) { g.prefix = prefix }
}

func WithLength(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.length = n
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithSource pins the random source, mainly for deterministic tests
func WithSource(src rand.Source) Option {
	return func(g *Generator) { g.rnd = rand.New(src) }
}

func New(opts ...Option) *Generator {
	g := &Generator{length: DefaultLength, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a fresh id for which exists reports false. exists must be an
// exact-match lookup over the ids already in the collection.
func (g *Generator) Next(exists func(id string) bool) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		id := g.draw()
		if exists == nil || !exists(id) {
			return id, nil
		}
	}
	return "", ErrSpaceExhausted
}

func (g *Generator) draw() string {
	var b strings.Builder
	b.Grow(len(g.prefix) + g.length)
	b.WriteString(g.prefix)

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < g.length; i++ {
		b.WriteByte(Alphabet[g.intN(len(Alphabet))])
	}
	return b.String()
}

func (g *Generator) intN(n int) int {
	if g.rnd != nil {
		return g.rnd.IntN(n)
	}
	return rand.IntN(n)
}
