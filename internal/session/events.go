package session

import (
	"fmt"
	"sync"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/transport"
)

type EventKind int

const (
	// StateChanged carries the new transport State, and Err for a disconnect.
	StateChanged EventKind = iota + 1
	// ConnectFailed reports one failed dial; reconnection may continue.
	ConnectFailed
	// HistoryReplaced carries the full list after a join.
	HistoryReplaced
	// MessageAppended carries a new message at the end of the list.
	MessageAppended
	// MessageUpdated carries a new value of an own message, matched by
	// LocalID.
	MessageUpdated
	Joined
	// JoinFailed carries the server's refusal as *JoinError.
	JoinFailed
	// TypingChanged carries the sender now typing, empty when nobody is.
	TypingChanged
)

var kindNames = map[EventKind]string{
	StateChanged:    "state_changed",
	ConnectFailed:   "connect_failed",
	HistoryReplaced: "history_replaced",
	MessageAppended: "message_appended",
	MessageUpdated:  "message_updated",
	Joined:          "joined",
	JoinFailed:      "join_failed",
	TypingChanged:   "typing_changed",
}

func (k EventKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one notification to the application. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind     EventKind
	State    transport.State
	Terminal bool
	Err      error
	RoomID   string
	Message  models.Message
	History  []models.Message
	Typing   string
}

// mailbox delivers events in order without ever blocking the producer.
type mailbox struct {
	mu     sync.Mutex
	queue  []Event
	closed bool

	wake chan struct{}
	stop chan struct{}
	out  chan Event
}

func newMailbox() *mailbox {
	m := &mailbox{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		out:  make(chan Event),
	}
	go m.pump()
	return m
}

func (m *mailbox) push(ev Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// close stops delivery; queued events are dropped and out is closed.
func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.queue = nil
	close(m.stop)
}

func (m *mailbox) pump() {
	defer close(m.out)
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			select {
			case <-m.wake:
				continue
			case <-m.stop:
				return
			}
		}
		ev := m.queue[0]
		m.queue[0] = Event{}
		m.queue = m.queue[1:]
		m.mu.Unlock()

		select {
		case m.out <- ev:
		case <-m.stop:
			return
		}
	}
}
