package crmsdk

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Storage keys. userMapsKey is legacy state written by earlier portal
// builds; Clear removes it along with everything else.
const (
	keyAccessToken  = "crm_access_token"
	keyUserData     = "user_data"
	keyAbilityRules = "user_ability_rules"
	keyTenantType   = "tenant_type"
	keyFeatureRoles = "feature_roles"
	keyUserMaps     = "user_maps"
)

// SQLiteStore is a durable SessionStore backed by a local SQLite database.
// It is the CLI's cookie equivalent: session artifacts survive across
// process invocations. Save commits the whole snapshot in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the session database at dsn and applies
// any pending schema migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// applyMigrations applies the embedded migration files, compiled into the
// binary.
func (s *SQLiteStore) applyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// Save implements SessionStore. The delete-then-insert runs inside a single
// transaction so no reader observes a partially updated snapshot.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_state`); err != nil {
		return err
	}

	entries := map[string]any{
		keyAccessToken:  snap.AccessToken,
		keyUserData:     snap.Profile,
		keyAbilityRules: snap.AbilityRules,
		keyTenantType:   snap.TenantType,
		keyFeatureRoles: snap.FeatureRoles,
	}

	for key, value := range entries {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_state (key, value) VALUES (?, ?)`, key, raw); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load implements SessionStore. Missing keys resolve to typed defaults.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_state`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	values := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return Snapshot{}, err
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if raw, ok := values[keyAccessToken]; ok {
		_ = json.Unmarshal(raw, &snap.AccessToken)
	}
	if raw, ok := values[keyUserData]; ok {
		_ = json.Unmarshal(raw, &snap.Profile)
	}
	if raw, ok := values[keyAbilityRules]; ok {
		_ = json.Unmarshal(raw, &snap.AbilityRules)
	}
	if raw, ok := values[keyTenantType]; ok {
		_ = json.Unmarshal(raw, &snap.TenantType)
	}
	if raw, ok := values[keyFeatureRoles]; ok {
		_ = json.Unmarshal(raw, &snap.FeatureRoles)
	}

	return snap, nil
}

// SetAccessToken implements SessionStore.
func (s *SQLiteStore) SetAccessToken(ctx context.Context, token string) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		keyAccessToken, raw)
	return err
}

// AccessToken implements SessionStore.
func (s *SQLiteStore) AccessToken(ctx context.Context) (string, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?`, keyAccessToken).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", err
	}
	return token, nil
}

// Clear implements SessionStore. Removes every key, including the legacy
// user_maps entry. Idempotent: clearing an empty store succeeds.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_state`)
	return err
}
