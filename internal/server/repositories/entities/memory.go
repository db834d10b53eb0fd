package entities

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"

	"github.com/dmitrijs2005/suitewaste/internal/server/models"
)

type indexEntry struct {
	seq int64
	id  string
}

type memIndex struct {
	records map[string]json.RawMessage
	seqs    map[string]int64
	// order is sorted by seq.
	order []indexEntry
}

type memState struct {
	nextSeq int64
	indexes map[string]*memIndex
}

// MemoryBackend keeps everything in process memory behind one mutex, so
// every call is atomic. WithTx holds the mutex for the whole of fn; writes
// made before fn fails are not rolled back.
type MemoryBackend struct {
	mu     *sync.Mutex
	state  *memState
	locked bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		mu:    &sync.Mutex{},
		state: &memState{indexes: make(map[string]*memIndex)},
	}
}

func (b *MemoryBackend) lock() func() {
	if b.locked {
		return func() {}
	}
	b.mu.Lock()
	return b.mu.Unlock
}

func (b *MemoryBackend) index(name string) *memIndex {
	ix, ok := b.state.indexes[name]
	if !ok {
		ix = &memIndex{records: make(map[string]json.RawMessage), seqs: make(map[string]int64)}
		b.state.indexes[name] = ix
	}
	return ix
}

func (b *MemoryBackend) WithTx(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error {
	defer b.lock()()
	return fn(ctx, &MemoryBackend{mu: b.mu, state: b.state, locked: true})
}

func (b *MemoryBackend) Put(_ context.Context, index, id string, data json.RawMessage) error {
	defer b.lock()()
	ix := b.index(index)
	ix.records[id] = slices.Clone(data)
	if _, ok := ix.seqs[id]; !ok {
		b.state.nextSeq++
		ix.seqs[id] = b.state.nextSeq
		ix.order = append(ix.order, indexEntry{seq: b.state.nextSeq, id: id})
	}
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, index, id string) (json.RawMessage, error) {
	defer b.lock()()
	data, ok := b.index(index).records[id]
	if !ok {
		return nil, nil
	}
	return slices.Clone(data), nil
}

func (b *MemoryBackend) Delete(_ context.Context, index, id string) (bool, error) {
	defer b.lock()()
	ix := b.index(index)
	ix.unindex(id)
	_, ok := ix.records[id]
	delete(ix.records, id)
	return ok, nil
}

func (ix *memIndex) unindex(id string) {
	seq, ok := ix.seqs[id]
	if !ok {
		return
	}
	delete(ix.seqs, id)
	i := sort.Search(len(ix.order), func(i int) bool { return ix.order[i].seq >= seq })
	if i < len(ix.order) && ix.order[i].seq == seq {
		ix.order = slices.Delete(ix.order, i, i+1)
	}
}

func (b *MemoryBackend) List(_ context.Context, index string, after int64, limit int) ([]models.Record, error) {
	defer b.lock()()
	ix := b.index(index)
	start := sort.Search(len(ix.order), func(i int) bool { return ix.order[i].seq > after })

	var out []models.Record
	for _, e := range ix.order[start:] {
		if len(out) >= limit {
			break
		}
		data, ok := ix.records[e.id]
		if !ok {
			continue
		}
		out = append(out, models.Record{Index: index, ID: e.id, Seq: e.seq, Data: slices.Clone(data)})
	}
	return out, nil
}

func (b *MemoryBackend) IndexCount(_ context.Context, index string) (int, error) {
	defer b.lock()()
	return len(b.index(index).order), nil
}

func (b *MemoryBackend) Repair(_ context.Context, index string) (RepairResult, error) {
	defer b.lock()()
	ix := b.index(index)

	var out RepairResult
	for _, e := range slices.Clone(ix.order) {
		if _, ok := ix.records[e.id]; !ok {
			ix.unindex(e.id)
			out.Dropped++
		}
	}

	missing := make([]string, 0)
	for id := range ix.records {
		if _, ok := ix.seqs[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	for _, id := range missing {
		b.state.nextSeq++
		ix.seqs[id] = b.state.nextSeq
		ix.order = append(ix.order, indexEntry{seq: b.state.nextSeq, id: id})
		out.Added++
	}
	return out, nil
}
