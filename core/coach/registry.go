package coach

import (
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownQualifier = errors.New("coach: unknown qualifier")

type Scope string

const (
	// Singleton resolves to one shared instance, built on first use.
	Singleton Scope = "singleton"
	// Prototype builds a new instance on every resolution.
	Prototype Scope = "prototype"
)

const (
	Cricket  = "cricketCoach"
	Baseball = "baseballCoach"
	Track    = "trackCoach"
	Tennis   = "tennisCoach"
)

type Provider struct {
	Scope Scope
	get   func() Coach
}

func NewProvider(scope Scope, build func() Coach) Provider {
	if scope == Singleton {
		return Provider{Scope: scope, get: sync.OnceValue(build)}
	}
	return Provider{Scope: scope, get: build}
}

func (p Provider) Get() Coach {
	return p.get()
}

// Registry maps qualifiers to providers.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// DefaultRegistry holds the four coaches; cricketCoach is prototype scoped.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Cricket, NewProvider(Prototype, func() Coach { return NewCricketCoach() }))
	r.Register(Baseball, NewProvider(Singleton, func() Coach { return NewBaseballCoach() }))
	r.Register(Track, NewProvider(Singleton, func() Coach { return NewTrackCoach() }))
	r.Register(Tennis, NewProvider(Singleton, func() Coach { return NewTennisCoach() }))
	return r
}

func (r *Registry) Register(qualifier string, p Provider) {
	r.providers[qualifier] = p
}

func (r *Registry) Resolve(qualifier string) (Coach, error) {
	p, ok := r.providers[qualifier]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQualifier, qualifier)
	}
	return p.Get(), nil
}
