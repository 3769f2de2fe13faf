package internal

import (
	"sync"
	"sync/atomic"

	"github.com/Siloft/siloft-networking/conf"
)

// peerTable maps connection ids to their workers. Buckets of sync.Maps keep
// accept, disconnect, and transmit paths from contending on one lock.
type peerTable struct {
	buckets    []*sync.Map
	size       *atomic.Int64
	shardCount uint64
}

func newPeerTable(c conf.Bucket) *peerTable {
	t := &peerTable{
		buckets:    make([]*sync.Map, shardCount(c.BucketSize)),
		size:       &atomic.Int64{},
		shardCount: shardCount(c.BucketSize),
	}

	for i := range t.shardCount {
		t.buckets[i] = &sync.Map{}
	}

	return t
}

// shardCount normalizes the configured bucket size: non-positive values fall
// back to the default, and the result is rounded up to a power of two so the
// bucket mask reaches every shard.
func shardCount(size int) uint64 {
	if size <= 0 {
		size = conf.Default().Bucket.BucketSize
	}

	n := uint64(1)
	for n < uint64(size) {
		n <<= 1
	}

	return n
}

func (t *peerTable) get(id uint64) *Worker {
	if w, ok := t.bucket(id).Load(id); ok {
		return w.(*Worker)
	}

	return nil
}

// put stores w, replacing and returning any worker already registered under
// the same id.
func (t *peerTable) put(w *Worker) (old *Worker) {
	if prev, loaded := t.bucket(w.ID()).Swap(w.ID(), w); loaded {
		return prev.(*Worker)
	}

	t.size.Add(1)

	return nil
}

// remove claims and deletes the worker for id. The first caller wins; late
// callers get nil, which keeps disconnect notifications exactly-once.
func (t *peerTable) remove(id uint64) *Worker {
	if w, loaded := t.bucket(id).LoadAndDelete(id); loaded {
		t.size.Add(-1)
		return w.(*Worker)
	}

	return nil
}

func (t *peerTable) walk(f func(w *Worker) bool) {
	continued := true

	for _, b := range t.buckets {
		b.Range(func(_, value any) bool {
			w, ok := value.(*Worker)
			if !ok {
				return true
			}

			continued = f(w)

			return continued
		})

		if !continued {
			break
		}
	}
}

func (t *peerTable) len() int {
	return int(t.size.Load())
}

func (t *peerTable) bucket(id uint64) *sync.Map {
	return t.buckets[wyhash(id)&(t.shardCount-1)]
}

// wyhash generates a 64-bit hash for the given 64-bit key.
func wyhash(key uint64) uint64 {
	x := key
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33

	return x
}
