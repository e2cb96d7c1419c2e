package pull

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	log = logger.GetLogger("pull")

	blocksAllocated = metrics.NewCounter("dquery_pull_blocks_allocated_total")
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	DefaultBlockSize = 256     // Rows per block if nothing else is configured
	MaxBlockSize     = 1 << 20 // Upper bound accepted by New
)

// --------------------------------------------------------------------------
// Handle
// --------------------------------------------------------------------------

// Handle addresses one slot of a Pull
type Handle struct {
	Block  int32
	Offset int32
}

func (h Handle) String() string {
	return fmt.Sprintf("Handle{%d:%d}", h.Block, h.Offset)
}

// --------------------------------------------------------------------------
// Pull
// --------------------------------------------------------------------------

// Pull stores the values of one column in fixed-size blocks.
//
// The block directory is replaced atomically on growth while the blocks
// themselves are never copied or resized, so a Handle issued before a growth
// event keeps pointing at the same memory afterwards. Readers never take a lock.
type Pull[T any] struct {
	blockSize int
	blocks    atomic.Pointer[[][]T] // directory of blocks
	growMu    sync.Mutex            // serializes writers that need a new block
}

// New creates an empty pull with the given block size (<= 0 uses DefaultBlockSize)
func New[T any](blockSize int) *Pull[T] {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if blockSize > MaxBlockSize {
		blockSize = MaxBlockSize
	}
	p := &Pull[T]{blockSize: blockSize}
	empty := make([][]T, 0)
	p.blocks.Store(&empty)
	return p
}

// BlockSize returns the number of slots per block
func (p *Pull[T]) BlockSize() int {
	return p.blockSize
}

// HandleOf converts a row slot number into a handle of this pull
func (p *Pull[T]) HandleOf(slot int) Handle {
	return Handle{
		Block:  int32(slot / p.blockSize),
		Offset: int32(slot % p.blockSize),
	}
}

// SlotOf is the inverse of HandleOf
func (p *Pull[T]) SlotOf(h Handle) int {
	return int(h.Block)*p.blockSize + int(h.Offset)
}

// Blocks returns the number of allocated blocks
func (p *Pull[T]) Blocks() int {
	return len(*p.blocks.Load())
}

// Cap returns the number of slots that can be written without growing
func (p *Pull[T]) Cap() int {
	return p.Blocks() * p.blockSize
}

// Get returns the value stored for h. Slots that were never written
// (including slots beyond the allocated blocks) return the zero value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (p *Pull[T]) Get(h Handle) T {
	dir := *p.blocks.Load()
	if h.Block < 0 || int(h.Block) >= len(dir) || h.Offset < 0 || int(h.Offset) >= p.blockSize {
		var zero T
		return zero
	}
	return dir[h.Block][h.Offset]
}

// Set writes v into the slot addressed by h, allocating blocks as needed.
//
// Thread-safety: writers of different slots may run concurrently. Writes to
// the same slot must be synchronized by the caller.
func (p *Pull[T]) Set(h Handle, v T) {
	if h.Block < 0 || h.Offset < 0 || int(h.Offset) >= p.blockSize {
		panic(fmt.Sprintf("pull: %s out of range for block size %d", h, p.blockSize))
	}
	dir := *p.blocks.Load()
	if int(h.Block) >= len(dir) {
		dir = p.grow(int(h.Block) + 1)
	}
	dir[h.Block][h.Offset] = v
}

// Clear resets the slot addressed by h to the zero value
func (p *Pull[T]) Clear(h Handle) {
	dir := *p.blocks.Load()
	if h.Block < 0 || int(h.Block) >= len(dir) || h.Offset < 0 || int(h.Offset) >= p.blockSize {
		return
	}
	var zero T
	dir[h.Block][h.Offset] = zero
}

// grow appends blocks until the directory holds at least n blocks and
// returns the directory that is guaranteed to be large enough.
func (p *Pull[T]) grow(n int) [][]T {
	p.growMu.Lock()
	defer p.growMu.Unlock()

	old := *p.blocks.Load()
	if len(old) >= n {
		return old
	}

	dir := make([][]T, n)
	copy(dir, old)
	for i := len(old); i < n; i++ {
		dir[i] = make([]T, p.blockSize)
	}
	p.blocks.Store(&dir)

	blocksAllocated.Add(n - len(old))
	log.Debugf("grew pull to %d blocks (%d slots)", n, n*p.blockSize)

	return dir
}

// CopyTo copies the values of the given slots into dst.
// dst may use a different block size; slots are translated through HandleOf.
func (p *Pull[T]) CopyTo(dst *Pull[T], slots []int) {
	for _, slot := range slots {
		dst.Set(dst.HandleOf(slot), p.Get(p.HandleOf(slot)))
	}
}
