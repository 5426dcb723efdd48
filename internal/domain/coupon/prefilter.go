package coupon

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const (
	prefilterCapacity = 1_000_000
	prefilterFPR      = 0.001
)

// Prefilter is a bloom filter over known coupon names. It lets the evaluator
// reject obviously invalid names without a database round-trip; because bloom
// filters have no false negatives, an existing coupon is never rejected.
type Prefilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewPrefilter creates an empty Prefilter.
func NewPrefilter() *Prefilter {
	return &Prefilter{
		filter: bloom.NewWithEstimates(prefilterCapacity, prefilterFPR),
	}
}

// Load seeds the filter with every coupon name from the repository.
func (f *Prefilter) Load(ctx context.Context, repo Repository) error {
	names, err := repo.Names(ctx)
	if err != nil {
		return errors.Wrap(err, "list coupon names")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range names {
		f.filter.AddString(name)
	}
	return nil
}

// Add records a newly created coupon name.
func (f *Prefilter) Add(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(name)
}

// MightContain reports whether name could be a known coupon. False means
// the name definitely does not exist.
func (f *Prefilter) MightContain(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(name)
}
