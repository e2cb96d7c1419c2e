package pull

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/ValentinKolb/dQuery/lib/db/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	// ErrIndexAttached is the panic value of Dispose on an index still serving a pull
	ErrIndexAttached = errors.New("pull: index is still attached to a live pull")

	indexRebuilds = metrics.NewCounter("dquery_index_rebuilds_total")
	indexLookups  = metrics.NewCounter("dquery_index_lookups_total")
)

// Ops are the type specific operations an index needs.
// Equal must be consistent with Hash: Equal(a, b) implies Hash(a) == Hash(b).
type Ops[T any] struct {
	Equal   func(a, b T) bool
	Hash    func(v T) util.UintKey
	Compare func(a, b T) int
}

// Info describes the shape of an index
type Info struct {
	Buckets      int                    `json:"buckets" yaml:"buckets"`
	Entries      int                    `json:"entries" yaml:"entries"`
	Distribution util.DistributionStats `json:"distribution" yaml:"distribution"`
}

// --------------------------------------------------------------------------
// Index
// --------------------------------------------------------------------------

// Index maps the values of one pull to the handles holding them.
//
// Buckets are keyed by the value hash; candidates are always verified against
// the current pull content with Ops.Equal. A handle that is found in a stale
// bucket (between a pull write and the matching Update) is therefore never
// returned for a key it no longer holds.
type Index[T any] struct {
	pull     *Pull[T]
	ops      Ops[T]
	buckets  *xsync.MapOf[util.UintKey, []Handle]
	attached atomic.Bool
	disposed atomic.Bool
}

// NewIndex creates an empty index attached to p
func NewIndex[T any](p *Pull[T], ops Ops[T]) *Index[T] {
	idx := &Index[T]{
		pull:    p,
		ops:     ops,
		buckets: xsync.NewMapOfWithHasher[util.UintKey, []Handle](createSeededHasher(util.GenerateSeed())),
	}
	idx.attached.Store(true)
	return idx
}

// createSeededHasher mixes the (already hashed) bucket key with the map seed
func createSeededHasher(indexSeed uint64) func(util.UintKey, uint64) uint64 {
	return func(key util.UintKey, mapSeed uint64) uint64 {
		return uint64(key) ^ indexSeed ^ mapSeed
	}
}

// Pull returns the pull this index was built for
func (idx *Index[T]) Pull() *Pull[T] {
	return idx.pull
}

// Rebuild drops all entries and replays the current values of handles.
//
// Thread-safety: concurrent writers must not touch the pull during a rebuild.
func (idx *Index[T]) Rebuild(handles []Handle) {
	idx.buckets.Clear()
	for _, h := range handles {
		idx.Add(h, idx.pull.Get(h))
	}
	indexRebuilds.Inc()
	log.Debugf("rebuilt index over %d handles into %d buckets", len(handles), idx.buckets.Size())
}

// Add maps v to h
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (idx *Index[T]) Add(h Handle, v T) {
	idx.buckets.Compute(idx.ops.Hash(v), func(old []Handle, loaded bool) ([]Handle, bool) {
		if loaded && slices.Contains(old, h) {
			return old, false
		}
		// copy on write, readers may hold the old slice
		bucket := make([]Handle, len(old), len(old)+1)
		copy(bucket, old)
		return append(bucket, h), false
	})
}

// Remove drops the mapping v -> h
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (idx *Index[T]) Remove(h Handle, v T) {
	idx.buckets.Compute(idx.ops.Hash(v), func(old []Handle, loaded bool) ([]Handle, bool) {
		if !loaded {
			return old, true
		}
		pos := slices.Index(old, h)
		if pos < 0 {
			return old, false
		}
		if len(old) == 1 {
			return nil, true
		}
		bucket := make([]Handle, 0, len(old)-1)
		bucket = append(bucket, old[:pos]...)
		bucket = append(bucket, old[pos+1:]...)
		return bucket, false
	})
}

// Update moves h from the bucket of old to the bucket of value
func (idx *Index[T]) Update(h Handle, old, value T) {
	if idx.ops.Hash(old) == idx.ops.Hash(value) {
		// same bucket, the verification on read takes care of the rest
		idx.Add(h, value)
		return
	}
	idx.Remove(h, old)
	idx.Add(h, value)
}

// Select returns all handles currently holding key, ordered by position
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (idx *Index[T]) Select(key T) []Handle {
	indexLookups.Inc()
	bucket, ok := idx.buckets.Load(idx.ops.Hash(key))
	if !ok {
		return nil
	}
	var result []Handle
	for _, h := range bucket {
		if idx.ops.Equal(idx.pull.Get(h), key) {
			result = append(result, h)
		}
	}
	slices.SortFunc(result, compareHandles)
	return result
}

// SelectOne returns the first handle holding key
func (idx *Index[T]) SelectOne(key T) (Handle, bool) {
	result := idx.Select(key)
	if len(result) == 0 {
		return Handle{}, false
	}
	return result[0], true
}

// SelectFunc scans all indexed handles and returns those whose value matches
// pred, ordered by value (Ops.Compare) and then by position.
func (idx *Index[T]) SelectFunc(pred func(v T) bool) []Handle {
	var result []Handle
	idx.buckets.Range(func(_ util.UintKey, bucket []Handle) bool {
		for _, h := range bucket {
			if pred(idx.pull.Get(h)) {
				result = append(result, h)
			}
		}
		return true
	})
	slices.SortFunc(result, func(a, b Handle) int {
		if idx.ops.Compare != nil {
			if c := idx.ops.Compare(idx.pull.Get(a), idx.pull.Get(b)); c != 0 {
				return c
			}
		}
		return compareHandles(a, b)
	})
	return result
}

// Len returns the number of indexed handles
func (idx *Index[T]) Len() int {
	n := 0
	idx.buckets.Range(func(_ util.UintKey, bucket []Handle) bool {
		n += len(bucket)
		return true
	})
	return n
}

// Info returns bucket statistics of the index
func (idx *Index[T]) Info() Info {
	var sizes []float64
	entries := 0
	idx.buckets.Range(func(_ util.UintKey, bucket []Handle) bool {
		sizes = append(sizes, float64(len(bucket)))
		entries += len(bucket)
		return true
	})
	return Info{
		Buckets:      len(sizes),
		Entries:      entries,
		Distribution: util.NewDistributionStats(sizes),
	}
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Attached reports whether the index still serves its pull
func (idx *Index[T]) Attached() bool {
	return idx.attached.Load()
}

// Detach unbinds the index from its pull. A detached index must not be used
// for lookups anymore, its owner builds a new one instead.
func (idx *Index[T]) Detach() {
	idx.attached.Store(false)
}

// Dispose releases the buckets of a detached index.
// Disposing an attached index is a programming error and panics.
func (idx *Index[T]) Dispose() {
	if idx.attached.Load() {
		panic(fmt.Errorf("%w (%d entries)", ErrIndexAttached, idx.Len()))
	}
	if idx.disposed.CompareAndSwap(false, true) {
		idx.buckets.Clear()
	}
}

func compareHandles(a, b Handle) int {
	if a.Block != b.Block {
		return int(a.Block - b.Block)
	}
	return int(a.Offset - b.Offset)
}
