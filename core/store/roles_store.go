package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// RoleRecord is a cached permission grant keyed by lowercased email.
// The table is seeded by administrators; this service only reads it,
// Upsert exists for seeding tools and tests.
type RoleRecord struct {
	Email       string    `json:"email"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Permissions string    `json:"permissions"` // raw JSON list, parsed by the resolver
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RoleRecordsStore interface {
	GetByEmail(ctx context.Context, email string) (*RoleRecord, error)
	Upsert(ctx context.Context, rec *RoleRecord) error
}

type roleRecordsStore struct {
	db *DB
}

func NewRoleRecordsStore(db *DB) RoleRecordsStore {
	return &roleRecordsStore{db: db}
}

func (s *roleRecordsStore) GetByEmail(ctx context.Context, email string) (*RoleRecord, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT email, user_id, name, role, permissions, updated_at FROM user_roles WHERE email=?`), key)
	var rec RoleRecord
	if err := row.Scan(&rec.Email, &rec.UserID, &rec.Name, &rec.Role, &rec.Permissions, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *roleRecordsStore) Upsert(ctx context.Context, rec *RoleRecord) error {
	now := time.Now().UTC()
	key := strings.ToLower(strings.TrimSpace(rec.Email))
	perms := strings.TrimSpace(rec.Permissions)
	if perms == "" {
		perms = "[]"
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO user_roles(email, user_id, name, role, permissions, updated_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT (email)
		DO UPDATE SET user_id=excluded.user_id, name=excluded.name, role=excluded.role, permissions=excluded.permissions, updated_at=excluded.updated_at`),
		key, rec.UserID, rec.Name, strings.ToLower(strings.TrimSpace(rec.Role)), perms, now)
	return err
}
