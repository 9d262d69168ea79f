package transport

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

type memoryMessage struct {
	seq     uint64
	topic   string
	payload []byte
}

// Memory keeps every published message. A subscription name seen for the first
// time starts from the beginning of its topics; members of one subscription
// take turns on a single queue.
type Memory struct {
	mu     sync.Mutex
	seq    uint64
	log    []memoryMessage
	groups map[string]*memoryGroup
}

type memoryGroup struct {
	topics  map[string]bool
	pending []memoryMessage
	ready   chan struct{}
}

func NewMemory() *Memory {
	return &Memory{groups: make(map[string]*memoryGroup)}
}

func (m *Memory) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	msg := memoryMessage{seq: m.seq, topic: topic, payload: slices.Clone(payload)}
	m.log = append(m.log, msg)
	for _, g := range m.groups {
		if g.topics[topic] {
			g.pending = append(g.pending, msg)
			g.signal()
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topics []string, subscription string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[subscription]
	if !ok {
		g = &memoryGroup{topics: make(map[string]bool), ready: make(chan struct{})}
		m.groups[subscription] = g
	}
	added := make(map[string]bool)
	for _, t := range topics {
		if !g.topics[t] {
			g.topics[t] = true
			added[t] = true
		}
	}
	if len(added) > 0 {
		for _, msg := range m.log {
			if added[msg.topic] {
				g.pending = append(g.pending, msg)
			}
		}
		slices.SortStableFunc(g.pending, func(a, b memoryMessage) int { return cmp.Compare(a.seq, b.seq) })
		g.signal()
	}

	return &memorySubscription{
		owner:    m,
		group:    g,
		topics:   slices.Clone(topics),
		inFlight: make(map[uint64]memoryMessage),
		closed:   make(chan struct{}),
	}, nil
}

func (m *Memory) Close() error {
	return nil
}

// Pending counts messages of subscription not yet handed out.
func (m *Memory) Pending(subscription string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[subscription]; ok {
		return len(g.pending)
	}
	return 0
}

// signal wakes every waiting receiver; callers hold the lock.
func (g *memoryGroup) signal() {
	close(g.ready)
	g.ready = make(chan struct{})
}

type memorySubscription struct {
	owner    *Memory
	group    *memoryGroup
	topics   []string
	inFlight map[uint64]memoryMessage
	closed   chan struct{}
	isClosed bool
}

func (s *memorySubscription) wants(topic string) bool {
	return slices.Contains(s.topics, topic)
}

func (s *memorySubscription) Receive(ctx context.Context) (Delivery, error) {
	for {
		s.owner.mu.Lock()
		if s.isClosed {
			s.owner.mu.Unlock()
			return Delivery{}, ErrClosed
		}
		for i, msg := range s.group.pending {
			if !s.wants(msg.topic) {
				continue
			}
			s.group.pending = slices.Delete(s.group.pending, i, i+1)
			s.inFlight[msg.seq] = msg
			s.owner.mu.Unlock()
			seq := msg.seq
			return NewDelivery(msg.topic, slices.Clone(msg.payload), func(context.Context) error {
				return s.ack(seq)
			}), nil
		}
		ready := s.group.ready
		s.owner.mu.Unlock()

		select {
		case <-ready:
		case <-s.closed:
			return Delivery{}, ErrClosed
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		}
	}
}

func (s *memorySubscription) ack(seq uint64) error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	if _, ok := s.inFlight[seq]; !ok {
		return ErrNotInFlight
	}
	delete(s.inFlight, seq)
	return nil
}

// Close returns unacked deliveries to the shared queue in publish order.
func (s *memorySubscription) Close() error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	if s.isClosed {
		return nil
	}
	s.isClosed = true
	close(s.closed)

	if len(s.inFlight) > 0 {
		for _, msg := range s.inFlight {
			s.group.pending = append(s.group.pending, msg)
		}
		clear(s.inFlight)
		slices.SortStableFunc(s.group.pending, func(a, b memoryMessage) int { return cmp.Compare(a.seq, b.seq) })
		s.group.signal()
	}
	return nil
}
