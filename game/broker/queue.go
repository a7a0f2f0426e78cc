package broker

// Queue is an ordered FIFO waiting list of unpaired handles.
// It rejects duplicates. Not safe for concurrent use.
type Queue struct {
	items []*Handle
	index map[*Handle]struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		index: make(map[*Handle]struct{}),
	}
}

// Enqueue appends h to the tail. It returns false if h is already queued.
func (q *Queue) Enqueue(h *Handle) bool {
	if h == nil {
		return false
	}
	if _, exists := q.index[h]; exists {
		return false
	}
	q.items = append(q.items, h)
	q.index[h] = struct{}{}
	return true
}

// DequeueFront removes and returns the head of the queue
func (q *Queue) DequeueFront() (*Handle, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	h := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	delete(q.index, h)

	// Release the backing array once drained
	if len(q.items) == 0 {
		q.items = nil
	}
	return h, true
}

// Remove deletes h wherever it sits. It returns false if h was not queued.
func (q *Queue) Remove(h *Handle) bool {
	if _, exists := q.index[h]; !exists {
		return false
	}
	for i, item := range q.items {
		if item == h {
			copy(q.items[i:], q.items[i+1:])
			q.items[len(q.items)-1] = nil
			q.items = q.items[:len(q.items)-1]
			break
		}
	}
	delete(q.index, h)
	return true
}

// Contains reports whether h is waiting in the queue
func (q *Queue) Contains(h *Handle) bool {
	_, exists := q.index[h]
	return exists
}

// Len returns the number of waiting handles
func (q *Queue) Len() int {
	return len(q.items)
}
