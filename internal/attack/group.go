package attack

import (
	"errors"
	"fmt"

	"Airlock/internal/procman"
	"Airlock/pkg/concurrency"
	"Airlock/pkg/logger"
)

// Owned is a machine a campaign started and must tear down.
type Owned interface {
	Name() string
	Stop() (int, error)
	Cleanup() error
}

// Group owns the machines of one campaign. Close releases them newest
// first, so dependents go before what they depend on.
type Group struct {
	id    string
	owned *concurrency.Registry[Owned]
}

func NewGroup(id string) *Group {
	return &Group{
		id:    id,
		owned: concurrency.NewRegistry(func(a, b Owned) bool { return a == b }),
	}
}

// Adopt makes the group responsible for m.
func (g *Group) Adopt(m Owned) {
	if g.owned.Add(m) {
		logger.DebugIfEnabled("[%s] adopted %s", g.id, m.Name())
	}
}

// Release stops and cleans m ahead of Close.
func (g *Group) Release(m Owned) error {
	g.owned.Remove(m)
	return release(m)
}

// Len is the number of machines still owned.
func (g *Group) Len() int { return g.owned.Len() }

// Close stops and cleans every machine still owned. It keeps going past
// failures and reports all of them.
func (g *Group) Close() error {
	var errs []error
	for _, m := range g.owned.DrainReverse() {
		if err := release(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func release(m Owned) error {
	if _, err := m.Stop(); err != nil {
		if errors.Is(err, procman.ErrCleaned) {
			return nil
		}
		logger.Warnf("[%s] stop: %v", m.Name(), err)
	}
	if err := m.Cleanup(); err != nil && !errors.Is(err, procman.ErrCleaned) {
		return fmt.Errorf("clean %s: %w", m.Name(), err)
	}
	return nil
}

// closeGroup is deferred by every campaign.
func closeGroup(g *Group) {
	if err := g.Close(); err != nil {
		logger.Warnf("[%s] teardown: %v", g.id, err)
	}
}
