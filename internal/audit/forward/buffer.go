package forward

import (
	"sync"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
)

// ringBuffer is a bounded, thread-safe buffer for records awaiting fan-out.
// When full, the oldest records are dropped to make room for new ones; the
// durable store remains the system of record, fan-out is best effort.
type ringBuffer struct {
	mu       sync.Mutex
	records  []audit.Record
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &ringBuffer{
		records:  make([]audit.Record, capacity),
		capacity: capacity,
	}
}

// enqueue adds a record, dropping the oldest if necessary.
func (b *ringBuffer) enqueue(record audit.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
	}

	b.records[b.head] = record
	b.head = (b.head + 1) % b.capacity
	b.count++
}

// dequeueBatch removes up to n records from the buffer.
func (b *ringBuffer) dequeueBatch(n int) []audit.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]audit.Record, n)
	for i := 0; i < n; i++ {
		result[i] = b.records[b.tail]
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

// requeue puts records back at the head of the line after a failed publish.
func (b *ringBuffer) requeue(records []audit.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Walk backwards so the batch keeps its order at the front.
	for i := len(records) - 1; i >= 0; i-- {
		if b.count >= b.capacity {
			b.dropped++
			continue
		}
		b.tail = (b.tail - 1 + b.capacity) % b.capacity
		b.records[b.tail] = records[i]
		b.count++
	}
}

func (b *ringBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *ringBuffer) droppedCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
