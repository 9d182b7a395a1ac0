// Package database implements the persistence collaborator on SQLite.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// Manager implements interfaces.Store. Reads go straight to the pool; writes
// funnel through a single goroutine, which is what SQLite wants.
type Manager struct {
	db      *sql.DB
	writeCh chan writeOp
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type writeOp struct {
	fn     func(*sql.DB) error
	result chan error
}

// NewManager opens (or creates) the database at path and brings the schema
// up to date.
func NewManager(path string) (*Manager, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)

	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	m := &Manager{
		db:      db,
		writeCh: make(chan writeOp, 100),
		done:    make(chan struct{}),
	}
	m.wg.Add(1)
	go m.writeLoop()
	return m, nil
}

func (m *Manager) writeLoop() {
	defer m.wg.Done()
	for {
		select {
		case op := <-m.writeCh:
			op.result <- op.fn(m.db)
		case <-m.done:
			// Drain queued writes before exiting.
			for {
				select {
				case op := <-m.writeCh:
					op.result <- op.fn(m.db)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) write(ctx context.Context, fn func(*sql.DB) error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("database closed")
	}
	m.mu.Unlock()

	op := writeOp{fn: fn, result: make(chan error, 1)}
	select {
	case m.writeCh <- op:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-op.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) GetUser(ctx context.Context, id string) (*types.User, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT uuid, username, friends, blocked, created_at, last_seen FROM users WHERE uuid = ?`, id)
	return scanUser(row)
}

func (m *Manager) CreateUser(ctx context.Context, id, username string) (*types.User, error) {
	now := time.Now().UTC()
	user := &types.User{
		UUID:      id,
		Username:  username,
		Friends:   []string{},
		Blocked:   []string{},
		CreatedAt: now,
		LastSeen:  now,
	}
	err := m.write(ctx, func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT INTO users (uuid, username, friends, blocked, created_at, last_seen)
			 VALUES (?, ?, '[]', '[]', ?, ?)`,
			id, username, now, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", id, err)
	}
	return user, nil
}

func (m *Manager) SaveUser(ctx context.Context, user *types.User) error {
	friends, err := json.Marshal(user.Friends)
	if err != nil {
		return err
	}
	blocked, err := json.Marshal(user.Blocked)
	if err != nil {
		return err
	}
	return m.write(ctx, func(db *sql.DB) error {
		res, err := db.Exec(
			`UPDATE users SET username = ?, friends = ?, blocked = ? WHERE uuid = ?`,
			user.Username, string(friends), string(blocked), user.UUID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return interfaces.ErrUserNotFound
		}
		return nil
	})
}

// SaveUsers writes several records in one transaction. An unknown uuid rolls
// the whole batch back with ErrUserNotFound.
func (m *Manager) SaveUsers(ctx context.Context, users ...*types.User) error {
	type row struct {
		uuid     string
		username string
		friends  string
		blocked  string
	}
	rows := make([]row, 0, len(users))
	for _, user := range users {
		friends, err := json.Marshal(user.Friends)
		if err != nil {
			return err
		}
		blocked, err := json.Marshal(user.Blocked)
		if err != nil {
			return err
		}
		rows = append(rows, row{
			uuid:     user.UUID,
			username: user.Username,
			friends:  string(friends),
			blocked:  string(blocked),
		})
	}

	return m.write(ctx, func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, r := range rows {
			res, err := tx.Exec(
				`UPDATE users SET username = ?, friends = ?, blocked = ? WHERE uuid = ?`,
				r.username, r.friends, r.blocked, r.uuid)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				_ = tx.Rollback()
				return interfaces.ErrUserNotFound
			}
		}
		return tx.Commit()
	})
}

func (m *Manager) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return m.write(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`UPDATE users SET last_seen = ? WHERE uuid = ?`, at.UTC(), id)
		return err
	})
}

func (m *Manager) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (m *Manager) CreateInvite(ctx context.Context, from, to string) (*types.FriendInvite, error) {
	invite := &types.FriendInvite{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		CreatedAt: time.Now().UTC(),
	}
	err := m.write(ctx, func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT INTO friend_invites (id, from_uuid, to_uuid, created_at) VALUES (?, ?, ?, ?)`,
			invite.ID, from, to, invite.CreatedAt)
		if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return interfaces.ErrInviteExists
		}
		return err
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrInviteExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create invite %s -> %s: %w", from, to, err)
	}
	return invite, nil
}

func (m *Manager) GetInvite(ctx context.Context, from, to string) (*types.FriendInvite, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT id, from_uuid, to_uuid, created_at FROM friend_invites
		 WHERE from_uuid = ? AND to_uuid = ?`, from, to)
	invite := &types.FriendInvite{}
	err := row.Scan(&invite.ID, &invite.From, &invite.To, &invite.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return invite, nil
}

func (m *Manager) InvitesFor(ctx context.Context, id string) (incoming, outgoing []*types.FriendInvite, err error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, from_uuid, to_uuid, created_at FROM friend_invites
		 WHERE from_uuid = ? OR to_uuid = ? ORDER BY created_at`, id, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		invite := &types.FriendInvite{}
		if err := rows.Scan(&invite.ID, &invite.From, &invite.To, &invite.CreatedAt); err != nil {
			return nil, nil, err
		}
		if invite.To == id {
			incoming = append(incoming, invite)
		} else {
			outgoing = append(outgoing, invite)
		}
	}
	return incoming, outgoing, rows.Err()
}

func (m *Manager) DeleteInvite(ctx context.Context, id string) error {
	return m.write(ctx, func(db *sql.DB) error {
		_, err := db.Exec(`DELETE FROM friend_invites WHERE id = ?`, id)
		return err
	})
}

// Close stops the writer goroutine and closes the pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
	return m.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*types.User, error) {
	var (
		user            types.User
		friendsJSON     string
		blockedJSON     string
	)
	err := row.Scan(&user.UUID, &user.Username, &friendsJSON, &blockedJSON,
		&user.CreatedAt, &user.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(friendsJSON), &user.Friends); err != nil {
		return nil, fmt.Errorf("decode friend list for %s: %w", user.UUID, err)
	}
	if err := json.Unmarshal([]byte(blockedJSON), &user.Blocked); err != nil {
		return nil, fmt.Errorf("decode block list for %s: %w", user.UUID, err)
	}
	return &user, nil
}
