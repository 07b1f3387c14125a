package path

import (
	"sync"

	"deepwarren/server/internal/grid"
)

const (
	queueOccupancyMetricKey = "path_queue_occupancy"
	queueOverflowMetricKey  = "path_queue_overflow_total"
)

// Callback receives the result of an asynchronous request during a later
// drain. Callers that stop caring simply no-op; there is no cancellation
// once a request is enqueued.
type Callback func(PathResult)

// Request is one queued asynchronous search.
type Request struct {
	Start    grid.TileCoord
	Goal     grid.TileCoord
	Callback Callback
}

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// requestQueue stores pending requests in a fixed-size ring. It is safe
// for concurrent producers and a single consumer.
type requestQueue struct {
	mu      sync.Mutex
	data    []Request
	head    int
	tail    int
	count   int
	metrics telemetryMetrics
}

func newRequestQueue(capacity int, metrics telemetryMetrics) *requestQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &requestQueue{
		data:    make([]Request, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of requests the ring can hold.
func (q *requestQueue) Capacity() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

// Len reports the current occupancy.
func (q *requestQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Push enqueues a request, returning false if the ring is full.
func (q *requestQueue) Push(req Request) bool {
	if q == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.data) {
		if q.metrics != nil {
			q.metrics.Add(queueOverflowMetricKey, 1)
		}
		return false
	}
	q.data[q.tail] = req
	q.tail = (q.tail + 1) % len(q.data)
	q.count++
	if q.metrics != nil {
		q.metrics.Store(queueOccupancyMetricKey, uint64(q.count))
	}
	return true
}

// PopUpTo removes at most limit requests in FIFO order.
func (q *requestQueue) PopUpTo(limit int) []Request {
	if q == nil || limit <= 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	n := limit
	if n > q.count {
		n = q.count
	}
	out := make([]Request, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, q.data[q.head])
		q.data[q.head] = Request{}
		q.head = (q.head + 1) % len(q.data)
	}
	q.count -= n
	if q.metrics != nil {
		q.metrics.Store(queueOccupancyMetricKey, uint64(q.count))
	}
	return out
}
