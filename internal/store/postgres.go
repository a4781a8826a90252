package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

// Postgres keeps users, rooms and messages in PostgreSQL. The schema is
// created by db.Migrate.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) CreateUser(ctx context.Context, acc Account) error {
	u := acc.User
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, password_hash, avatar, color, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, acc.PasswordHash, u.Avatar, u.Color, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

func (s *Postgres) UserByName(ctx context.Context, name string) (Account, error) {
	var acc Account
	u := &acc.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, password_hash, avatar, color, created_at FROM users WHERE name = $1`, name).
		Scan(&u.ID, &u.Name, &acc.PasswordHash, &u.Avatar, &u.Color, &u.CreatedAt)
	return acc, notFound(err)
}

func (s *Postgres) UserByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, avatar, color, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Avatar, &u.Color, &u.CreatedAt)
	return u, notFound(err)
}

func (s *Postgres) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, avatar, color, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Avatar, &u.Color, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Postgres) CreateRoom(ctx context.Context, r models.Room) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO rooms (id, name, purpose, is_private, description, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Name, r.Purpose, r.IsPrivate, r.Description, r.CreatedBy, r.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	if err := addMembers(ctx, tx, r.ID, memberIDs(r)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) Room(ctx context.Context, id string) (models.Room, error) {
	var r models.Room
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, purpose, is_private, description, created_by, created_at FROM rooms WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.Purpose, &r.IsPrivate, &r.Description, &r.CreatedBy, &r.CreatedAt)
	if err != nil {
		return r, notFound(err)
	}
	r.Members, err = s.members(ctx, id)
	return r, err
}

func (s *Postgres) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, purpose, is_private, description, created_by, created_at FROM rooms ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	var rooms []models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Purpose, &r.IsPrivate, &r.Description, &r.CreatedBy, &r.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		rooms = append(rooms, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rooms {
		if rooms[i].Members, err = s.members(ctx, rooms[i].ID); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (s *Postgres) AddMembers(ctx context.Context, roomID string, userIDs []string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return addMembers(ctx, s.pool, roomID, userIDs)
}

func (s *Postgres) SaveMessage(ctx context.Context, m models.Message) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, room_id, sender_id, sender_name, content, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.RoomID, m.SenderID, m.SenderName, m.Content, m.Timestamp)
	return err
}

func (s *Postgres) RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	query := `SELECT id, room_id, sender_id, sender_name, content, created_at FROM messages WHERE room_id = $1 ORDER BY seq DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Status = models.StatusDelivered
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) members(ctx context.Context, roomID string) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.name, u.avatar, u.color, u.created_at
		FROM room_members m JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.joined_at`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Avatar, &u.Color, &u.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	return members, rows.Err()
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func addMembers(ctx context.Context, db execer, roomID string, userIDs []string) error {
	for _, id := range userIDs {
		_, err := db.Exec(ctx,
			`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roomID, id)
		if err != nil {
			return err
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
