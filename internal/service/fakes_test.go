package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"db-advisor/internal/models"
)

var errProviderDown = errors.New("provider unavailable")

// fakeEmbedder returns preset vectors by text and fallback for anything else.
type fakeEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	failFor  map[string]int // remaining failures per text, -1 fails forever
	err      error
	calls    atomic.Int32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if remaining, ok := f.failFor[text]; ok && remaining != 0 {
		if remaining > 0 {
			f.failFor[text] = remaining - 1
		}
		return nil, errProviderDown
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

type fakeGenerator struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakeIndex serves fixed candidates so scores are exact.
type fakeIndex struct {
	candidates []models.SearchCandidate
	searchErr  error
	lastLimit  int
}

func (f *fakeIndex) CreateCollection(ctx context.Context, name string, dimension int) error {
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, collection string, points []models.IndexedPoint) error {
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]models.SearchCandidate, error) {
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := f.candidates
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeIndex) Clear(ctx context.Context, collection string) error {
	f.candidates = nil
	return nil
}

func (f *fakeIndex) Count(ctx context.Context, collection string) (int, error) {
	return len(f.candidates), nil
}
