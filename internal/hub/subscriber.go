package hub

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/clipwatch/internal/event"
)

// ChanSubscriber is a Subscriber backed by a buffered channel. Payloads that
// arrive while the buffer is full are dropped and counted.
type ChanSubscriber struct {
	id          string
	transport   string
	addr        string
	accepts     []event.Kind
	connectedAt time.Time

	ch       chan event.Payload
	lastSent atomic.Int64
	dropped  atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

// NewChanSubscriber returns a subscriber with a fresh random ID. An empty
// accepts list subscribes to every kind.
func NewChanSubscriber(transport, addr string, accepts []event.Kind, buffer int) *ChanSubscriber {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChanSubscriber{
		id:          transport + "/" + uuid.NewString(),
		transport:   transport,
		addr:        addr,
		accepts:     accepts,
		connectedAt: time.Now(),
		ch:          make(chan event.Payload, buffer),
		done:        make(chan struct{}),
	}
}

func (s *ChanSubscriber) ID() string { return s.id }

func (s *ChanSubscriber) Info() SubscriberInfo {
	info := SubscriberInfo{
		ID:          s.id,
		Transport:   s.transport,
		Addr:        s.addr,
		Accepts:     s.accepts,
		ConnectedAt: s.connectedAt,
		Dropped:     s.dropped.Load(),
	}
	if ls := s.lastSent.Load(); ls > 0 {
		info.LastSent = time.Unix(0, ls)
	}
	return info
}

// Send implements Subscriber.
func (s *ChanSubscriber) Send(p event.Payload) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.ch <- p:
		s.lastSent.Store(time.Now().UnixNano())
	default:
		s.dropped.Add(1)
		slog.Warn("subscriber channel full, dropping", "subscriber", s.id, "kind", p.Kind)
	}
}

// C returns the channel payloads are delivered on.
func (s *ChanSubscriber) C() <-chan event.Payload { return s.ch }

// Done is closed by Close.
func (s *ChanSubscriber) Done() <-chan struct{} { return s.done }

// Close stops further deliveries. The payload channel is left open so a
// concurrent Send never panics.
func (s *ChanSubscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
