// Package loader provides request-scoped batching of single-key lookups.
//
// A Loader collects every Load issued before its first resolution into one
// batch and performs a single bulk fetch for the deduplicated key set. Results
// are positional: callers get the value for their key, or the zero value (nil
// for pointer types) when the fetch came back without it. Each Loader also
// caches resolved keys, so repeated loads of the same key within one request
// cost nothing. Loaders must never outlive the request they were built for.
package loader

import (
	"sync"
	"time"
)

// Config captures how a Loader fetches and batches.
type Config[K comparable, V any] struct {
	// Fetch resolves a deduplicated key set in one call. The returned slice
	// must be positional: result[i] corresponds to keys[i], zero-valued when
	// the key has no backing row.
	Fetch func(keys []K) ([]V, error)

	// Wait is how long the loader collects keys before firing the fetch.
	Wait time.Duration

	// MaxBatch caps keys per fetch; 0 means unbounded.
	MaxBatch int
}

// New builds a Loader from cfg.
func New[K comparable, V any](cfg Config[K, V]) *Loader[K, V] {
	return &Loader[K, V]{
		fetch:    cfg.Fetch,
		wait:     cfg.Wait,
		maxBatch: cfg.MaxBatch,
	}
}

type Loader[K comparable, V any] struct {
	fetch    func(keys []K) ([]V, error)
	wait     time.Duration
	maxBatch int

	cache map[K]V
	batch *batch[K, V]
	mu    sync.Mutex
}

type batch[K comparable, V any] struct {
	keys    []K
	data    []V
	err     error
	closing bool
	done    chan struct{}
}

// Load fetches the value for key, blocking until the enclosing batch resolves.
func (l *Loader[K, V]) Load(key K) (V, error) {
	return l.LoadThunk(key)()
}

// LoadThunk queues key into the current batch and returns a thunk that blocks
// for the result. Queuing every key of a response pass before invoking any
// thunk is what turns N lookups into one fetch.
func (l *Loader[K, V]) LoadThunk(key K) func() (V, error) {
	l.mu.Lock()
	if v, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return func() (V, error) {
			return v, nil
		}
	}
	if l.batch == nil {
		l.batch = &batch[K, V]{done: make(chan struct{})}
	}
	b := l.batch
	pos := b.keyIndex(l, key)
	l.mu.Unlock()

	return func() (V, error) {
		<-b.done

		var v V
		if pos < len(b.data) {
			v = b.data[pos]
		}
		if b.err == nil {
			l.mu.Lock()
			l.unsafePrime(key, v)
			l.mu.Unlock()
		}
		return v, b.err
	}
}

// LoadAll fetches values for every key. The result is positional and the
// whole set joins a single batch.
func (l *Loader[K, V]) LoadAll(keys []K) ([]V, error) {
	thunks := make([]func() (V, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(key)
	}

	values := make([]V, len(keys))
	var err error
	for i, thunk := range thunks {
		values[i], err = thunk()
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}

// Prime seeds the cache so a later Load of key skips the fetch entirely.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	l.unsafePrime(key, value)
	l.mu.Unlock()
}

func (l *Loader[K, V]) unsafePrime(key K, value V) {
	if l.cache == nil {
		l.cache = map[K]V{}
	}
	l.cache[key] = value
}

// keyIndex returns the position of key within the batch, deduplicating
// against keys already queued. Caller must hold l.mu.
func (b *batch[K, V]) keyIndex(l *Loader[K, V], key K) int {
	for i, k := range b.keys {
		if k == key {
			return i
		}
	}

	pos := len(b.keys)
	b.keys = append(b.keys, key)
	if pos == 0 {
		go b.startTimer(l)
	}

	if l.maxBatch != 0 && pos >= l.maxBatch-1 {
		if !b.closing {
			b.closing = true
			l.batch = nil
			go b.end(l)
		}
	}

	return pos
}

func (b *batch[K, V]) startTimer(l *Loader[K, V]) {
	time.Sleep(l.wait)
	l.mu.Lock()

	// Batch already fired via MaxBatch.
	if b.closing {
		l.mu.Unlock()
		return
	}

	l.batch = nil
	l.mu.Unlock()

	b.end(l)
}

func (b *batch[K, V]) end(l *Loader[K, V]) {
	b.data, b.err = l.fetch(b.keys)
	close(b.done)
}
