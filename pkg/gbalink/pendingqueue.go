package gbalink

// PendingQueueSlots is the bounded circular queue depth (spec.md §3.5).
const PendingQueueSlots = 32

// pendingEntry is one queued payload awaiting core delivery.
type pendingEntry struct {
	clientID ClientID
	payload  [MaxPayloadSize]byte
	length   int
}

// pendingQueue is the single-producer (network poll), single-consumer
// (core-delivery step) bounded circular queue feeding the core (spec.md
// §3.5). Overflow drops the newest packet; DroppedTotal counts drops so a
// property test can confirm it stays at zero under correct pacing (the
// open question in spec.md §9).
type pendingQueue struct {
	slots        [PendingQueueSlots]pendingEntry
	head, tail   int // head: next to dequeue; tail: next to enqueue
	count        int
	DroppedTotal uint64
}

// push enqueues payload for clientID. Returns false if the queue was full,
// in which case the packet is dropped and DroppedTotal is incremented
// (spec.md §4.4.6).
func (q *pendingQueue) push(clientID ClientID, payload []byte) bool {
	if q.count == PendingQueueSlots {
		q.DroppedTotal++
		return false
	}
	e := &q.slots[q.tail]
	e.clientID = clientID
	e.length = copy(e.payload[:], payload)
	q.tail = (q.tail + 1) % PendingQueueSlots
	q.count++
	return true
}

// pop dequeues the oldest entry, FIFO (spec.md §5 "ordering guarantees").
func (q *pendingQueue) pop() (clientID ClientID, payload []byte, ok bool) {
	if q.count == 0 {
		return 0, nil, false
	}
	e := &q.slots[q.head]
	clientID = e.clientID
	payload = append([]byte(nil), e.payload[:e.length]...)
	q.head = (q.head + 1) % PendingQueueSlots
	q.count--
	return clientID, payload, true
}

// len reports the current queue depth, always in [0, PendingQueueSlots]
// (spec.md §8.1 "queue bounds").
func (q *pendingQueue) len() int {
	return q.count
}
