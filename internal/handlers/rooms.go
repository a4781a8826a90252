package handlers

import (
	"errors"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/utils"
)

var errPeerClosed = errors.New("peer closed")

// Peer is one accepted socket.
type Peer struct {
	ID       string
	UserID   string
	UserName string

	conn   *websocket.Conn
	codec  codec.Codec
	mu     sync.Mutex
	closed bool
}

func NewPeer(id, userID, userName string, conn *websocket.Conn, cd codec.Codec) *Peer {
	return &Peer{ID: id, UserID: userID, UserName: userName, conn: conn, codec: cd}
}

// Send writes f to the peer. Writes are serialized per connection.
func (p *Peer) Send(f models.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPeerClosed
	}
	return utils.SendFrame(p.conn, p.codec, f)
}

// Close stops further writes. The underlying conn is recycled by the
// websocket middleware once the handler returns.
func (p *Peer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

type RoomManager struct {
	mu sync.RWMutex
	// room id -> peer id -> peer
	rooms map[string]map[string]*Peer
	// peer id -> peer
	peers map[string]*Peer
	// peer id -> current room
	current map[string]string
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:   make(map[string]map[string]*Peer),
		peers:   make(map[string]*Peer),
		current: make(map[string]string),
	}
}

// Join moves p into room, leaving the room it was in. It returns the
// previous room, if any.
func (m *RoomManager) Join(room string, p *Peer) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.current[p.ID]
	if prev == room {
		return ""
	}
	m.leaveLocked(p.ID)

	if _, ok := m.rooms[room]; !ok {
		m.rooms[room] = make(map[string]*Peer)
	}
	m.rooms[room][p.ID] = p
	m.current[p.ID] = room
	return prev
}

// Leave removes the peer from its current room and returns that room.
func (m *RoomManager) Leave(peerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveLocked(peerID)
}

func (m *RoomManager) leaveLocked(peerID string) string {
	room, ok := m.current[peerID]
	if !ok {
		return ""
	}
	delete(m.current, peerID)
	if conns, ok := m.rooms[room]; ok {
		delete(conns, peerID)
		if len(conns) == 0 {
			delete(m.rooms, room)
		}
	}
	return room
}

// CurrentRoom returns the room the peer is in, or "".
func (m *RoomManager) CurrentRoom(peerID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current[peerID]
}

// Broadcast sends f to every peer in room except excludeID. A failed write
// is logged and left for the peer's read loop to clean up.
func (m *RoomManager) Broadcast(room string, f models.Frame, excludeID string) {
	m.mu.RLock()
	targets := make([]*Peer, 0, len(m.rooms[room]))
	for id, p := range m.rooms[room] {
		if id != excludeID {
			targets = append(targets, p)
		}
	}
	m.mu.RUnlock()

	for _, p := range targets {
		if err := p.Send(f); err != nil {
			log.Warn().Err(err).Str("peer", p.ID).Str("room", room).Msg("[ws] broadcast write failed")
		}
	}
}

// RegisterConnection tracks a new peer. It reports whether the user just
// came online.
func (m *RoomManager) RegisterConnection(p *Peer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasOnline := m.onlineLocked(p.UserID)
	m.peers[p.ID] = p
	return !wasOnline
}

// UnregisterConnection drops the peer from its room and the registry. It
// reports whether that was the user's last connection.
func (m *RoomManager) UnregisterConnection(peerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.peers[peerID]
	if !ok {
		return false
	}
	m.leaveLocked(peerID)
	delete(m.peers, peerID)
	return !m.onlineLocked(p.UserID)
}

func (m *RoomManager) IsUserOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onlineLocked(userID)
}

func (m *RoomManager) onlineLocked(userID string) bool {
	for _, p := range m.peers {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// CountUserConnections returns the number of open sockets of a user.
func (m *RoomManager) CountUserConnections(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.peers {
		if p.UserID == userID {
			n++
		}
	}
	return n
}
