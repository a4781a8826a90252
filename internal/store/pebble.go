package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

// Key layout:
//
//	u/<id>                  Account
//	n/<name>                user id
//	r/<id>                  roomRecord
//	m/<room>\x00<seq u64>   Message, seq big-endian so keys sort by arrival
const (
	prefixUser    = "u/"
	prefixName    = "n/"
	prefixRoom    = "r/"
	prefixMessage = "m/"
)

// Pebble stores records as JSON values in an embedded pebble database.
type Pebble struct {
	db *pebble.DB
	// mu serializes read-modify-write sequences.
	mu   sync.Mutex
	next uint64
}

// OpenPebble opens or creates the database in dir. opts may be nil.
func OpenPebble(dir string, opts *pebble.Options) (*Pebble, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	s := &Pebble{db: db}

	if err := s.resumeSequence(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Pebble) CreateUser(_ context.Context, acc Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nameKey := []byte(prefixName + acc.User.Name)
	if _, err := s.get(nameKey, nil); err == nil {
		return ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := setJSON(b, []byte(prefixUser+acc.User.ID), acc); err != nil {
		return err
	}
	if err := b.Set(nameKey, []byte(acc.User.ID), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func (s *Pebble) UserByName(_ context.Context, name string) (Account, error) {
	id, err := s.get([]byte(prefixName+name), nil)
	if err != nil {
		return Account{}, err
	}
	var acc Account
	_, err = s.get([]byte(prefixUser+string(id)), &acc)
	return acc, err
}

func (s *Pebble) UserByID(_ context.Context, id string) (models.User, error) {
	var acc Account
	if _, err := s.get([]byte(prefixUser+id), &acc); err != nil {
		return models.User{}, err
	}
	return acc.User, nil
}

func (s *Pebble) ListUsers(_ context.Context) ([]models.User, error) {
	var out []models.User
	err := s.scan([]byte(prefixUser), func(_, v []byte) error {
		var acc Account
		if err := json.Unmarshal(v, &acc); err != nil {
			return err
		}
		out = append(out, acc.User)
		return nil
	})
	return out, err
}

func (s *Pebble) CreateRoom(_ context.Context, r models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := []byte(prefixRoom + r.ID)
	if _, err := s.get(key, nil); err == nil {
		return ErrConflict
	}
	rec := roomRecord{Room: r, Members: memberIDs(r)}
	rec.Room.Members = nil
	return setJSON(s.db, key, rec)
}

func (s *Pebble) Room(ctx context.Context, id string) (models.Room, error) {
	var rec roomRecord
	if _, err := s.get([]byte(prefixRoom+id), &rec); err != nil {
		return models.Room{}, err
	}
	return s.resolve(ctx, rec), nil
}

func (s *Pebble) ListRooms(ctx context.Context) ([]models.Room, error) {
	var recs []roomRecord
	err := s.scan([]byte(prefixRoom), func(_, v []byte) error {
		var rec roomRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Room, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.resolve(ctx, rec))
	}
	return out, nil
}

func (s *Pebble) AddMembers(_ context.Context, roomID string, userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := []byte(prefixRoom + roomID)
	var rec roomRecord
	if _, err := s.get(key, &rec); err != nil {
		return err
	}
	for _, id := range userIDs {
		if !slices.Contains(rec.Members, id) {
			rec.Members = append(rec.Members, id)
		}
	}
	return setJSON(s.db, key, rec)
}

func (s *Pebble) SaveMessage(_ context.Context, m models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := messageKey(m.RoomID, s.next)
	s.next++
	return setJSON(s.db, key, m)
}

// RecentMessages walks the room's keys backwards and stops after limit.
func (s *Pebble) RecentMessages(_ context.Context, roomID string, limit int) ([]models.Message, error) {
	prefix := messagePrefix(roomID)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var out []models.Message
	for it.Last(); it.Valid() && (limit <= 0 || len(out) < limit); it.Prev() {
		var m models.Message
		if err := json.Unmarshal(it.Value(), &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Key(), err)
		}
		out = append(out, m)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

func (s *Pebble) Close() error { return s.db.Close() }

func (s *Pebble) resolve(ctx context.Context, rec roomRecord) models.Room {
	r := rec.Room
	r.Members = make([]models.User, 0, len(rec.Members))
	for _, id := range rec.Members {
		if u, err := s.UserByID(ctx, id); err == nil {
			r.Members = append(r.Members, u)
		}
	}
	return r
}

// resumeSequence sets next past the highest stored sequence. Keys sort by
// room first, so it visits the last key of each room and jumps to the
// previous room with SeekLT.
func (s *Pebble) resumeSequence() error {
	prefix := []byte(prefixMessage)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return err
	}
	defer func() { _ = it.Close() }()

	for valid := it.Last(); valid; {
		k := it.Key()
		if len(k) < len(prefix)+9 {
			valid = it.Prev()
			continue
		}
		if seq := binary.BigEndian.Uint64(k[len(k)-8:]); seq >= s.next {
			s.next = seq + 1
		}
		valid = it.SeekLT(slices.Clone(k[:len(k)-8]))
	}
	return it.Error()
}

// get reads key and, when v is non-nil, decodes the JSON value into it.
func (s *Pebble) get(key []byte, v any) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	raw := slices.Clone(val)
	if v != nil {
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	return raw, nil
}

func (s *Pebble) scan(prefix []byte, fn func(k, v []byte) error) error {
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return err
	}
	defer func() { _ = it.Close() }()
	for it.First(); it.Valid(); it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

type setter interface {
	Set(key, value []byte, opts *pebble.WriteOptions) error
}

func setJSON(w setter, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.Set(key, b, pebble.Sync)
}

func messagePrefix(roomID string) []byte {
	return []byte(prefixMessage + roomID + "\x00")
}

func messageKey(roomID string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(messagePrefix(roomID), seq)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := slices.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
