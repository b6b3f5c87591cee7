package mqtt

import log "github.com/sirupsen/logrus"

// bufferedMsg is a serialized publish held until the broker is reachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest messages published during an outage.
// When full, the oldest message is overwritten.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type ringBuffer struct {
	msgs    []bufferedMsg
	oldest  int // index of the oldest message
	count   int
	dropped int // messages overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	n := len(r.msgs)
	if r.count < n {
		r.msgs[(r.oldest+r.count)%n] = msg
		r.count++
		return
	}

	if r.dropped == 0 {
		log.WithField("capacity", n).Warn("mqtt: buffer full, dropping oldest")
	}
	r.dropped++
	r.msgs[r.oldest] = msg
	r.oldest = (r.oldest + 1) % n
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	n := len(r.msgs)
	out := make([]bufferedMsg, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.msgs[(r.oldest+i)%n])
	}

	if r.dropped > 0 {
		log.WithField("dropped", r.dropped).Warn("mqtt: messages lost while disconnected")
	}
	r.oldest, r.count, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
