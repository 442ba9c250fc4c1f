package statement

import "sync"

// SizeTracker learns a good initial buffer capacity for one statement shape.
// Every K samples the capacity becomes the larger of the running average and
// the largest sample in the window.
type SizeTracker struct {
	mu       sync.RWMutex
	samples  []int
	count    int
	size     int
	largest  int
	lifetime int
}

// NewSizeTracker creates a tracker starting at initial with a window of k samples.
func NewSizeTracker(initial, k int) *SizeTracker {
	if k < 1 {
		k = 1
	}
	return &SizeTracker{size: initial, samples: make([]int, k)}
}

// Size returns the current capacity estimate.
func (t *SizeTracker) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Register records the final size of a built statement.
func (t *SizeTracker) Register(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n > t.largest {
		t.largest = n
	}
	t.samples[t.count] = n
	t.count++
	if t.count < len(t.samples) {
		return
	}

	sum := t.lifetime
	for _, s := range t.samples {
		sum += s
	}
	t.lifetime = sum / (len(t.samples) + 1)
	t.size = max(t.lifetime, t.largest)
	t.count = 0
	t.largest = 0
}

// Shape names a family of statements that share a tracker.
type Shape string

const (
	ShapeInsert Shape = "insert"
	ShapeUpdate Shape = "update"
	ShapeSelect Shape = "select"
	ShapeDelete Shape = "delete"
)

// Trackers hands out one tracker per shape, creating it on first use.
type Trackers struct {
	mu       sync.Mutex
	initial  int
	k        int
	trackers map[Shape]*SizeTracker
}

// NewTrackers creates an empty tracker set.
func NewTrackers(initial, k int) *Trackers {
	return &Trackers{initial: initial, k: k, trackers: make(map[Shape]*SizeTracker)}
}

// For returns the tracker for a shape.
func (s *Trackers) For(shape Shape) *SizeTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[shape]
	if !ok {
		t = NewSizeTracker(s.initial, s.k)
		s.trackers[shape] = t
	}
	return t
}
