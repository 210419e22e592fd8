package mqtt

import "github.com/charmbracelet/log"

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO of messages queued while disconnected.
// When full the oldest message is overwritten. Caller must synchronize.
type backlog struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped uint64 // total overwritten, never reset
	warned  bool   // overflow logged since last drain
}

func newBacklog(capacity int) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	return &backlog{buf: make([]bufferedMsg, capacity)}
}

func (b *backlog) push(msg bufferedMsg) {
	capacity := len(b.buf)
	if b.count == capacity {
		b.dropped++
		if !b.warned {
			log.Warn("mqtt: backlog full, dropping oldest", "capacity", capacity)
			b.warned = true
		}
		b.buf[b.head] = msg
		b.head = (b.head + 1) % capacity
		return
	}
	b.buf[b.head] = msg
	b.head = (b.head + 1) % capacity
	b.count++
}

// drain returns queued messages oldest first and empties the backlog.
func (b *backlog) drain() []bufferedMsg {
	if b.count == 0 {
		return nil
	}

	capacity := len(b.buf)
	out := make([]bufferedMsg, b.count)
	start := (b.head - b.count + capacity) % capacity
	for i := range out {
		out[i] = b.buf[(start+i)%capacity]
	}

	b.count = 0
	b.head = 0
	b.warned = false
	return out
}

func (b *backlog) len() int {
	return b.count
}
