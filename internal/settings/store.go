// Package settings persists per-tenant credentials and naming configuration
// in PostgreSQL and scrubs secret values out of vendor error text before it
// is surfaced anywhere.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no settings row exists for a tenant key.
var ErrNotFound = errors.New("tenant settings not found")

// TenantSettings is one row of actionsflow.tenant_settings.
type TenantSettings struct {
	ID               string    `json:"id"`
	Tenant           string    `json:"tenant"`
	Domain           string    `json:"domain"`
	ClientID         string    `json:"clientId"`
	ClientSecret     string    `json:"-"`
	ActionNamePrefix string    `json:"actionNamePrefix"`
	MetadataKey      string    `json:"metadataKey"`
	ClaimsNamespace  string    `json:"claimsNamespace"`
	CallbackURL      string    `json:"callbackUrl"`
	CallbackAPIKey   string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Secrets lists the values that must never appear in surfaced error text.
func (t TenantSettings) Secrets() []string {
	return []string{t.ClientSecret, t.CallbackAPIKey}
}

type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// ExecSQL executes raw SQL (used for schema bootstrap).
// Caller is responsible for idempotency (schema.sql should be).
func (s *Store) ExecSQL(ctx context.Context, sql string) error {
	_, err := s.pool.Exec(ctx, sql)
	return err
}

func (s *Store) Upsert(ctx context.Context, t TenantSettings) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO actionsflow.tenant_settings
		  (id, tenant, auth0_domain, client_id, client_secret,
		   action_name_prefix, metadata_key, claims_namespace, callback_url, callback_api_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (tenant) DO UPDATE SET
		  auth0_domain=EXCLUDED.auth0_domain,
		  client_id=EXCLUDED.client_id,
		  client_secret=EXCLUDED.client_secret,
		  action_name_prefix=EXCLUDED.action_name_prefix,
		  metadata_key=EXCLUDED.metadata_key,
		  claims_namespace=EXCLUDED.claims_namespace,
		  callback_url=EXCLUDED.callback_url,
		  callback_api_key=EXCLUDED.callback_api_key,
		  updated_at=now()
	`, t.ID, t.Tenant, t.Domain, t.ClientID, t.ClientSecret,
		t.ActionNamePrefix, nullIfEmpty(t.MetadataKey), nullIfEmpty(t.ClaimsNamespace),
		nullIfEmpty(t.CallbackURL), nullIfEmpty(t.CallbackAPIKey))
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (s *Store) Get(ctx context.Context, tenant string) (*TenantSettings, error) {
	var t TenantSettings
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant, auth0_domain, client_id, client_secret,
		       action_name_prefix, COALESCE(metadata_key,''), COALESCE(claims_namespace,''),
		       COALESCE(callback_url,''), COALESCE(callback_api_key,''), created_at, updated_at
		FROM actionsflow.tenant_settings
		WHERE tenant=$1
	`, tenant).Scan(&t.ID, &t.Tenant, &t.Domain, &t.ClientID, &t.ClientSecret,
		&t.ActionNamePrefix, &t.MetadataKey, &t.ClaimsNamespace,
		&t.CallbackURL, &t.CallbackAPIKey, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) Delete(ctx context.Context, tenant string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM actionsflow.tenant_settings WHERE tenant=$1
	`, tenant)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]TenantSettings, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant, auth0_domain, client_id, client_secret,
		       action_name_prefix, COALESCE(metadata_key,''), COALESCE(claims_namespace,''),
		       COALESCE(callback_url,''), COALESCE(callback_api_key,''), created_at, updated_at
		FROM actionsflow.tenant_settings
		ORDER BY tenant
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TenantSettings
	for rows.Next() {
		var t TenantSettings
		if err := rows.Scan(&t.ID, &t.Tenant, &t.Domain, &t.ClientID, &t.ClientSecret,
			&t.ActionNamePrefix, &t.MetadataKey, &t.ClaimsNamespace,
			&t.CallbackURL, &t.CallbackAPIKey, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
