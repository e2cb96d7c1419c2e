package pull

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/ValentinKolb/dQuery/lib/db/util"
)

func intOps() Ops[int] {
	return Ops[int]{
		Equal:   func(a, b int) bool { return a == b },
		Hash:    func(v int) util.UintKey { return util.HashUint64(uint64(v)) },
		Compare: func(a, b int) int { return a - b },
	}
}

// collidingOps puts every value into a handful of buckets to exercise verification
func collidingOps() Ops[int] {
	ops := intOps()
	ops.Hash = func(v int) util.UintKey { return util.UintKey(v % 3) }
	return ops
}

func TestHandleMapping(t *testing.T) {
	p := New[int](16)
	for _, slot := range []int{0, 1, 15, 16, 17, 255, 256} {
		h := p.HandleOf(slot)
		if got := p.SlotOf(h); got != slot {
			t.Errorf("slot %d -> %s -> %d", slot, h, got)
		}
	}
	if h := p.HandleOf(33); h.Block != 2 || h.Offset != 1 {
		t.Errorf("unexpected handle %s", h)
	}
}

func TestDefaultBlockSize(t *testing.T) {
	if New[int](0).BlockSize() != DefaultBlockSize {
		t.Errorf("expected default block size")
	}
	if New[int](MaxBlockSize*2).BlockSize() != MaxBlockSize {
		t.Errorf("expected block size to be capped")
	}
}

func TestGetSetGrow(t *testing.T) {
	p := New[string](4)

	if v := p.Get(Handle{Block: 3, Offset: 1}); v != "" {
		t.Errorf("unallocated slot should be zero, got %q", v)
	}

	h := p.HandleOf(2)
	p.Set(h, "first")
	if p.Blocks() != 1 {
		t.Fatalf("expected 1 block, got %d", p.Blocks())
	}

	// growing must not move already written values
	p.Set(p.HandleOf(41), "far")
	if p.Blocks() != 11 || p.Cap() != 44 {
		t.Errorf("expected 11 blocks / 44 slots, got %d / %d", p.Blocks(), p.Cap())
	}
	if got := p.Get(h); got != "first" {
		t.Errorf("handle issued before growth returned %q", got)
	}

	p.Clear(h)
	if got := p.Get(h); got != "" {
		t.Errorf("cleared slot returned %q", got)
	}
}

func TestSetOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for offset beyond block size")
		}
	}()
	New[int](4).Set(Handle{Block: 0, Offset: 4}, 1)
}

func TestConcurrentGrowth(t *testing.T) {
	p := New[int](8)
	const writers = 8
	const perWriter = 2000

	// writer w owns slots w, w+writers, w+2*writers, ...
	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				slot := w + i*writers
				p.Set(p.HandleOf(slot), slot+1)
				// read back an earlier slot of the same writer while others grow the pull
				if i > 0 {
					prev := w + (i-1)*writers
					if got := p.Get(p.HandleOf(prev)); got != prev+1 {
						t.Errorf("slot %d lost its value: %d", prev, got)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()

	for slot := 0; slot < writers*perWriter; slot++ {
		if got := p.Get(p.HandleOf(slot)); got != slot+1 {
			t.Fatalf("slot %d: expected %d, got %d", slot, slot+1, got)
		}
	}
}

func TestCopyTo(t *testing.T) {
	src := New[int](4)
	slots := []int{0, 3, 9}
	for _, s := range slots {
		src.Set(src.HandleOf(s), s*10)
	}
	dst := New[int](2)
	src.CopyTo(dst, slots)
	for _, s := range slots {
		if got := dst.Get(dst.HandleOf(s)); got != s*10 {
			t.Errorf("slot %d: expected %d, got %d", s, s*10, got)
		}
	}
}

// --------------------------------------------------------------------------
// Index
// --------------------------------------------------------------------------

func TestIndexConsistency(t *testing.T) {
	for name, ops := range map[string]Ops[int]{"spread": intOps(), "colliding": collidingOps()} {
		t.Run(name, func(t *testing.T) {
			const slots = 200
			p := New[int](16)
			idx := NewIndex(p, ops)

			handles := make([]Handle, slots)
			for s := range handles {
				handles[s] = p.HandleOf(s)
				p.Set(handles[s], s%7)
			}
			idx.Rebuild(handles)

			rnd := rand.New(rand.NewSource(42))
			for i := 0; i < 2000; i++ {
				h := handles[rnd.Intn(slots)]
				old := p.Get(h)
				value := rnd.Intn(12)
				p.Set(h, value)
				idx.Update(h, old, value)
			}

			for key := 0; key < 12; key++ {
				var scan []Handle
				for _, h := range handles {
					if p.Get(h) == key {
						scan = append(scan, h)
					}
				}
				got := idx.Select(key)
				if len(got) != len(scan) {
					t.Fatalf("key %d: index returned %d handles, scan %d", key, len(got), len(scan))
				}
				for i := range got {
					if got[i] != scan[i] {
						t.Fatalf("key %d: position %d differs: %s vs %s", key, i, got[i], scan[i])
					}
				}
			}
			if idx.Len() != slots {
				t.Errorf("expected %d entries, got %d", slots, idx.Len())
			}
		})
	}
}

func TestIndexSelectOneAndRemove(t *testing.T) {
	p := New[int](4)
	idx := NewIndex(p, intOps())

	h1, h2 := p.HandleOf(1), p.HandleOf(6)
	p.Set(h1, 5)
	p.Set(h2, 5)
	idx.Add(h2, 5)
	idx.Add(h1, 5)
	idx.Add(h1, 5) // idempotent

	if h, ok := idx.SelectOne(5); !ok || h != h1 {
		t.Errorf("expected first handle %s, got %s (%v)", h1, h, ok)
	}

	idx.Remove(h1, 5)
	if got := idx.Select(5); len(got) != 1 || got[0] != h2 {
		t.Errorf("unexpected handles after remove: %v", got)
	}

	idx.Remove(h2, 5)
	if _, ok := idx.SelectOne(5); ok {
		t.Errorf("expected no handle after removing all")
	}
	if info := idx.Info(); info.Buckets != 0 || info.Entries != 0 {
		t.Errorf("expected empty index, got %+v", info)
	}
}

func TestIndexSelectFuncOrdered(t *testing.T) {
	p := New[int](4)
	idx := NewIndex(p, intOps())
	values := []int{9, 3, 7, 3, 1}
	handles := make([]Handle, len(values))
	for i, v := range values {
		handles[i] = p.HandleOf(i)
		p.Set(handles[i], v)
	}
	idx.Rebuild(handles)

	got := idx.SelectFunc(func(v int) bool { return v >= 3 })
	var ordered []int
	for _, h := range got {
		ordered = append(ordered, p.Get(h))
	}
	want := []int{3, 3, 7, 9}
	if len(ordered) != len(want) {
		t.Fatalf("expected %v, got %v", want, ordered)
	}
	for i := range want {
		if ordered[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ordered)
		}
	}
	if got[0] != handles[1] || got[1] != handles[3] {
		t.Errorf("equal values should keep position order: %v", got)
	}
}

func TestIndexDispose(t *testing.T) {
	p := New[int](4)
	idx := NewIndex(p, intOps())
	idx.Add(p.HandleOf(0), 1)

	func() {
		defer func() {
			r := recover()
			err, ok := r.(error)
			if !ok || !errors.Is(err, ErrIndexAttached) {
				t.Errorf("expected ErrIndexAttached panic, got %v", r)
			}
		}()
		idx.Dispose()
	}()

	idx.Detach()
	if idx.Attached() {
		t.Fatalf("index should be detached")
	}
	idx.Dispose()
	idx.Dispose() // second dispose is a no-op
	if idx.Len() != 0 {
		t.Errorf("disposed index should be empty")
	}
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

func BenchmarkPullSet(b *testing.B) {
	p := New[int](DefaultBlockSize)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Set(p.HandleOf(i%(1<<20)), i)
	}
}

func BenchmarkIndexUpdate(b *testing.B) {
	p := New[int](DefaultBlockSize)
	idx := NewIndex(p, intOps())
	const slots = 1 << 14
	for s := 0; s < slots; s++ {
		p.Set(p.HandleOf(s), s)
		idx.Add(p.HandleOf(s), s)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h := p.HandleOf(i % slots)
		old := p.Get(h)
		p.Set(h, old+1)
		idx.Update(h, old, old+1)
	}
}

func BenchmarkIndexSelect(b *testing.B) {
	p := New[int](DefaultBlockSize)
	idx := NewIndex(p, intOps())
	const slots = 1 << 14
	for s := 0; s < slots; s++ {
		p.Set(p.HandleOf(s), s%1024)
		idx.Add(p.HandleOf(s), s%1024)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Select(i % 1024)
	}
}
