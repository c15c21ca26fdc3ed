// Package truthsource implements the data-source priority resolver
// supplemented from original_source/chatwork-webhook/lib/brain/truth_resolver.py:
// realtime API > durable store > spec/docs > memory > (forbidden) guess.
// Gated by config.FeatureFlags.EnableTruthResolver.
package truthsource

import (
	"context"
	"fmt"

	"cogcore/internal/pipeline"
)

// Source identifies one rung of the truth-priority ladder.
type Source int

const (
	SourceRealtimeAPI Source = iota
	SourceDurableStore
	SourceSpecDocs
	SourceMemory
	sourceGuess // cannot be registered; Resolve returns it only alongside ErrGuessNotAllowed
)

func (s Source) String() string {
	switch s {
	case SourceRealtimeAPI:
		return "realtime_api"
	case SourceDurableStore:
		return "durable_store"
	case SourceSpecDocs:
		return "spec_docs"
	case SourceMemory:
		return "memory"
	default:
		return "guess"
	}
}

// Lookup is one candidate data source; Lookup functions return
// (value, found, error). A Resolver tries Lookups strictly in priority
// order and returns the first that reports found=true.
type Lookup func(ctx context.Context) (value string, found bool, err error)

// Resolver tries a fixed priority order of lookups and refuses to guess.
type Resolver struct {
	lookups map[Source]Lookup
}

// New constructs a Resolver. Any subset of sources may be registered; unset
// sources are simply skipped during Resolve.
func New() *Resolver {
	return &Resolver{lookups: make(map[Source]Lookup)}
}

// Register binds a Lookup to a priority rung. Registering sourceGuess is
// rejected: guessing is never an allowed data source (spec.md §7).
func (r *Resolver) Register(source Source, lookup Lookup) error {
	if source == sourceGuess {
		return fmt.Errorf("truthsource: %w", pipeline.ErrGuessNotAllowed)
	}
	r.lookups[source] = lookup
	return nil
}

// Resolve walks sources in priority order and returns the first hit, along
// with which source satisfied it (for audit/reasoning text). If no
// registered source has the value, it returns ErrGuessNotAllowed rather
// than falling back to fabrication.
func (r *Resolver) Resolve(ctx context.Context) (value string, source Source, err error) {
	order := []Source{SourceRealtimeAPI, SourceDurableStore, SourceSpecDocs, SourceMemory}
	for _, s := range order {
		lookup, ok := r.lookups[s]
		if !ok {
			continue
		}
		v, found, lerr := lookup(ctx)
		if lerr != nil {
			continue // a failing source is skipped, not fatal — fall through to the next rung
		}
		if found {
			return v, s, nil
		}
	}
	return "", sourceGuess, pipeline.ErrGuessNotAllowed
}
