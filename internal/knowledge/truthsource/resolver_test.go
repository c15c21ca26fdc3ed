package truthsource

import (
	"context"
	"errors"
	"testing"

	"cogcore/internal/pipeline"
)

func lookupValue(v string) Lookup {
	return func(context.Context) (string, bool, error) { return v, true, nil }
}

func lookupMiss() Lookup {
	return func(context.Context) (string, bool, error) { return "", false, nil }
}

func lookupErr(err error) Lookup {
	return func(context.Context) (string, bool, error) { return "", false, err }
}

func TestResolve_PrefersHigherPriorityRungs(t *testing.T) {
	r := New()
	_ = r.Register(SourceMemory, lookupValue("from memory"))
	_ = r.Register(SourceRealtimeAPI, lookupValue("from realtime"))
	_ = r.Register(SourceDurableStore, lookupValue("from durable store"))

	v, s, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v != "from realtime" || s != SourceRealtimeAPI {
		t.Fatalf("expected realtime API to win, got (%q, %v)", v, s)
	}
}

func TestResolve_FallsThroughOnMissAndError(t *testing.T) {
	r := New()
	_ = r.Register(SourceRealtimeAPI, lookupErr(errors.New("api down")))
	_ = r.Register(SourceDurableStore, lookupMiss())
	_ = r.Register(SourceSpecDocs, lookupValue("from docs"))

	v, s, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v != "from docs" || s != SourceSpecDocs {
		t.Fatalf("expected spec docs to win after higher rungs miss/error, got (%q, %v)", v, s)
	}
}

func TestResolve_RefusesToGuessWhenNothingFound(t *testing.T) {
	r := New()
	_ = r.Register(SourceRealtimeAPI, lookupMiss())
	_ = r.Register(SourceMemory, lookupErr(errors.New("memory unavailable")))

	_, _, err := r.Resolve(context.Background())
	if !errors.Is(err, pipeline.ErrGuessNotAllowed) {
		t.Fatalf("expected ErrGuessNotAllowed, got %v", err)
	}
}

func TestResolve_NoRegisteredSourcesRefuses(t *testing.T) {
	r := New()
	_, _, err := r.Resolve(context.Background())
	if !errors.Is(err, pipeline.ErrGuessNotAllowed) {
		t.Fatalf("expected ErrGuessNotAllowed for an empty resolver, got %v", err)
	}
}

func TestRegister_RejectsGuessSource(t *testing.T) {
	r := New()
	err := r.Register(sourceGuess, lookupValue("fabricated"))
	if !errors.Is(err, pipeline.ErrGuessNotAllowed) {
		t.Fatalf("expected registering sourceGuess to be rejected, got %v", err)
	}
}

func TestSource_StringNames(t *testing.T) {
	cases := map[Source]string{
		SourceRealtimeAPI:  "realtime_api",
		SourceDurableStore: "durable_store",
		SourceSpecDocs:     "spec_docs",
		SourceMemory:       "memory",
		sourceGuess:        "guess",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("Source(%d).String() = %q, want %q", s, got, want)
		}
	}
}
