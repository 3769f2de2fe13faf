package internal

import (
	"sync"

	"github.com/Siloft/siloft-networking/xnet"
)

// transmitQueue is the ordered outbound buffer of one connection. It is the
// only structure mutated concurrently by the application (enqueue) and the
// transmit worker (snapshot, remove-after-write).
type transmitQueue struct {
	mu      sync.Mutex
	packets []*xnet.Packet
}

func newTransmitQueue() *transmitQueue {
	return &transmitQueue{}
}

func (q *transmitQueue) enqueue(p *xnet.Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.packets = append(q.packets, p)
}

// snapshot copies the queue's current contents. Packets enqueued afterwards
// are not part of the returned batch.
func (q *transmitQueue) snapshot() []*xnet.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := make([]*xnet.Packet, len(q.packets))
	copy(batch, q.packets)

	return batch
}

// remove deletes the first occurrence of p from the live queue. The transmit
// worker calls it right after p is fully written, so an interrupted batch
// leaves unwritten packets queued.
func (q *transmitQueue) remove(p *xnet.Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, queued := range q.packets {
		if queued == p {
			q.packets = append(q.packets[:i], q.packets[i+1:]...)
			return
		}
	}
}

func (q *transmitQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.packets)
}
