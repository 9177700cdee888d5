package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// credentialStore implements driven.CredentialStore.
type credentialStore struct {
	store *Store
}

var _ driven.CredentialStore = (*credentialStore)(nil)

// Load returns the credential for one user and service, or nil if absent.
func (s *credentialStore) Load(ctx context.Context, userID, serviceID string) (*domain.ServiceCredential, error) {
	var data string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT data FROM credentials WHERE user_id = ? AND service_id = ?",
		userID, serviceID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}

	var cred domain.ServiceCredential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("unmarshalling credential: %w", err)
	}
	return &cred, nil
}

// Save creates or replaces a credential.
func (s *credentialStore) Save(ctx context.Context, userID string, cred domain.ServiceCredential) error {
	if userID == "" || cred.ServiceID == "" {
		return domain.ErrInvalidInput
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshalling credential: %w", err)
	}

	var expiresAt any
	if cred.ExpiresAt != nil {
		expiresAt = formatTime(*cred.ExpiresAt)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, service_id, data, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, service_id) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, userID, cred.ServiceID, string(data), expiresAt, formatTime(cred.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Delete removes a credential.
func (s *credentialStore) Delete(ctx context.Context, userID, serviceID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE user_id = ? AND service_id = ?", userID, serviceID)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// ListServices returns the services a user is connected to, sorted.
func (s *credentialStore) ListServices(ctx context.Context, userID string) ([]string, error) {
	return s.strings(ctx,
		"SELECT service_id FROM credentials WHERE user_id = ? ORDER BY service_id", userID)
}

// ListUsers returns every user with at least one credential, sorted.
func (s *credentialStore) ListUsers(ctx context.Context) ([]string, error) {
	return s.strings(ctx, "SELECT DISTINCT user_id FROM credentials ORDER BY user_id")
}

func (s *credentialStore) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer rows.Close()

	var out []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning credential row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credentials: %w", err)
	}
	return out, nil
}
