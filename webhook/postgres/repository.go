package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/gymstack/webhook-engine/webhook"
)

/* PostgreSQL implementation of webhook.Repository on database/sql + lib/pq.
 *
 * The delivery mutation methods carry an optimistic attempt-count guard
 * (WHERE attempts = expected - 1): two workers racing the same delivery
 * cannot double-increment attempts or overwrite each other's status
 * transition. The loser gets webhook.ErrAttemptConflict.
 */

type Repository struct {
	DB *sql.DB
}

// NewRepository opens a connection pool with defaults (25 open, 5 idle, 5 min lifetime)
func NewRepository(connectionString string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(connectionString, 25, 5, 5)
}

// NewRepositoryWithPoolConfig opens a connection pool with explicit sizing.
// maxOpenConns of 0 means unlimited.
func NewRepositoryWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Repository{DB: db}, nil
}

func (r *Repository) CreateWebhook(ctx context.Context, wh webhook.Webhook) error {
	query := `
		INSERT INTO webhooks (id, tenant_id, url, event_types, secret, rate_limit, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.DB.ExecContext(ctx, query,
		wh.ID, wh.TenantID, wh.URL, pq.Array(wh.EventTypes), wh.Secret,
		wh.RateLimit, wh.Active, wh.CreatedAt, wh.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting webhook: %w", err)
	}
	return nil
}

func (r *Repository) GetWebhook(ctx context.Context, id string) (webhook.Webhook, error) {
	query := `
		SELECT id, tenant_id, url, event_types, secret, rate_limit, active, created_at, updated_at
		FROM webhooks WHERE id = $1
	`

	var wh webhook.Webhook
	var eventTypes pq.StringArray
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&wh.ID, &wh.TenantID, &wh.URL, &eventTypes, &wh.Secret,
		&wh.RateLimit, &wh.Active, &wh.CreatedAt, &wh.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Webhook{}, fmt.Errorf("webhook %s: %w", id, webhook.ErrNotFound)
	}
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("selecting webhook: %w", err)
	}

	wh.EventTypes = eventTypes
	return wh, nil
}

func (r *Repository) ListWebhooks(ctx context.Context, tenantID string, page webhook.Page) ([]webhook.Webhook, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM webhooks WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting webhooks: %w", err)
	}

	query := `
		SELECT id, tenant_id, url, event_types, secret, rate_limit, active, created_at, updated_at
		FROM webhooks
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("selecting webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []webhook.Webhook
	for rows.Next() {
		var wh webhook.Webhook
		var eventTypes pq.StringArray
		if err := rows.Scan(
			&wh.ID, &wh.TenantID, &wh.URL, &eventTypes, &wh.Secret,
			&wh.RateLimit, &wh.Active, &wh.CreatedAt, &wh.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning webhook: %w", err)
		}
		wh.EventTypes = eventTypes
		webhooks = append(webhooks, wh)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating webhooks: %w", err)
	}

	return webhooks, total, nil
}

func (r *Repository) FindMatching(ctx context.Context, tenantID, eventType string) ([]webhook.Webhook, error) {
	query := `
		SELECT id, tenant_id, url, event_types, secret, rate_limit, active, created_at, updated_at
		FROM webhooks
		WHERE tenant_id = $1 AND active AND $2 = ANY(event_types)
		ORDER BY id
	`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, eventType)
	if err != nil {
		return nil, fmt.Errorf("selecting matching webhooks: %w", err)
	}
	defer rows.Close()

	var matching []webhook.Webhook
	for rows.Next() {
		var wh webhook.Webhook
		var eventTypes pq.StringArray
		if err := rows.Scan(
			&wh.ID, &wh.TenantID, &wh.URL, &eventTypes, &wh.Secret,
			&wh.RateLimit, &wh.Active, &wh.CreatedAt, &wh.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning webhook: %w", err)
		}
		wh.EventTypes = eventTypes
		matching = append(matching, wh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating webhooks: %w", err)
	}

	return matching, nil
}

func (r *Repository) UpdateWebhook(ctx context.Context, wh webhook.Webhook) error {
	query := `
		UPDATE webhooks
		SET url = $1, event_types = $2, rate_limit = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.DB.ExecContext(ctx, query, wh.URL, pq.Array(wh.EventTypes), wh.RateLimit, wh.UpdatedAt, wh.ID)
	if err != nil {
		return fmt.Errorf("updating webhook: %w", err)
	}
	return checkAffected(result, wh.ID)
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE webhooks SET active = $1, updated_at = $2 WHERE id = $3`

	result, err := r.DB.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating webhook active flag: %w", err)
	}
	return checkAffected(result, id)
}

func (r *Repository) UpdateSecret(ctx context.Context, id, secret string) error {
	// Single-statement update: concurrent sign operations read either the
	// old or the new secret, never a torn value.
	query := `UPDATE webhooks SET secret = $1, updated_at = $2 WHERE id = $3`

	result, err := r.DB.ExecContext(ctx, query, secret, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating webhook secret: %w", err)
	}
	return checkAffected(result, id)
}

func (r *Repository) DeleteWebhook(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var pending int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deliveries WHERE webhook_id = $1 AND status IN ('pending', 'retrying')`, id,
	).Scan(&pending)
	if err != nil {
		return fmt.Errorf("counting undelivered attempts: %w", err)
	}
	if pending > 0 {
		return webhook.ErrDeliveriesPending
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM deliveries WHERE webhook_id = $1`, id); err != nil {
		return fmt.Errorf("deleting delivery history: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	if err := checkAffected(result, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (r *Repository) CreateDelivery(ctx context.Context, d webhook.Delivery) error {
	query := `
		INSERT INTO deliveries (id, webhook_id, event_type, payload, status, attempts, max_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.DB.ExecContext(ctx, query,
		d.ID, d.WebhookID, d.EventType, []byte(d.Payload), d.Status.String(),
		d.Attempts, d.MaxAttempts, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting delivery: %w", err)
	}
	return nil
}

func (r *Repository) GetDelivery(ctx context.Context, id string) (webhook.Delivery, error) {
	query := selectDelivery + ` WHERE id = $1`

	d, err := scanDelivery(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Delivery{}, fmt.Errorf("delivery %s: %w", id, webhook.ErrNotFound)
	}
	if err != nil {
		return webhook.Delivery{}, fmt.Errorf("selecting delivery: %w", err)
	}
	return d, nil
}

func (r *Repository) ListDeliveries(ctx context.Context, webhookID string, page webhook.Page) ([]webhook.Delivery, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM deliveries WHERE webhook_id = $1`, webhookID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting deliveries: %w", err)
	}

	query := selectDelivery + `
		WHERE webhook_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(ctx, query, webhookID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("selecting deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []webhook.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating deliveries: %w", err)
	}

	return deliveries, total, nil
}

func (r *Repository) CountByStatus(ctx context.Context, webhookID string) (webhook.Stats, error) {
	query := `SELECT status, COUNT(*) FROM deliveries WHERE webhook_id = $1 GROUP BY status`

	rows, err := r.DB.QueryContext(ctx, query, webhookID)
	if err != nil {
		return webhook.Stats{}, fmt.Errorf("counting deliveries by status: %w", err)
	}
	defer rows.Close()

	var stats webhook.Stats
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return webhook.Stats{}, fmt.Errorf("scanning status count: %w", err)
		}
		stats.Total += count
		switch webhook.NewDeliveryStatus(status) {
		case webhook.Pending:
			stats.Pending = count
		case webhook.Delivered:
			stats.Delivered = count
		case webhook.Retrying:
			stats.Failed = count
		case webhook.Exhausted:
			stats.Exhausted = count
		}
	}
	if err := rows.Err(); err != nil {
		return webhook.Stats{}, fmt.Errorf("iterating status counts: %w", err)
	}

	return stats, nil
}

func (r *Repository) CountAllByStatus(ctx context.Context) (map[string]int64, error) {
	query := `SELECT status, COUNT(*) FROM deliveries GROUP BY status`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("counting deliveries by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	return counts, nil
}

func (r *Repository) DueRetries(ctx context.Context, now time.Time, limit int) ([]webhook.Delivery, error) {
	query := selectDelivery + `
		WHERE status = 'retrying' AND next_retry_at IS NOT NULL AND next_retry_at <= $1
		ORDER BY next_retry_at
		LIMIT $2
	`

	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting due retries: %w", err)
	}
	defer rows.Close()

	var due []webhook.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating due retries: %w", err)
	}

	return due, nil
}

func (r *Repository) RecordSuccess(ctx context.Context, id string, attempts, responseCode int, at time.Time) error {
	query := `
		UPDATE deliveries
		SET status = 'delivered', attempts = $1, last_attempt_at = $2,
		    next_retry_at = NULL, response_code = $3, response_body = ''
		WHERE id = $4 AND attempts = $1 - 1
	`

	result, err := r.DB.ExecContext(ctx, query, attempts, at, responseCode, id)
	if err != nil {
		return fmt.Errorf("recording delivery success: %w", err)
	}
	return r.checkAttemptGuard(ctx, result, id)
}

func (r *Repository) RecordFailure(ctx context.Context, id string, attempts int, responseCode *int, responseBody string, nextRetryAt *time.Time, at time.Time) error {
	status := webhook.Exhausted
	if nextRetryAt != nil {
		status = webhook.Retrying
	}

	query := `
		UPDATE deliveries
		SET status = $1, attempts = $2, last_attempt_at = $3,
		    next_retry_at = $4, response_code = $5, response_body = $6
		WHERE id = $7 AND attempts = $2 - 1
	`

	result, err := r.DB.ExecContext(ctx, query, status.String(), attempts, at, nextRetryAt, responseCode, responseBody, id)
	if err != nil {
		return fmt.Errorf("recording delivery failure: %w", err)
	}
	return r.checkAttemptGuard(ctx, result, id)
}

func (r *Repository) MarkPending(ctx context.Context, id string, extraBudget int) (webhook.Delivery, error) {
	// The status predicate closes the race against a worker settling the
	// delivery between the service's status check and this write.
	query := `
		UPDATE deliveries
		SET status = 'pending', next_retry_at = NULL, max_attempts = max_attempts + $1
		WHERE id = $2 AND status IN ('exhausted', 'retrying')
	`

	result, err := r.DB.ExecContext(ctx, query, extraBudget, id)
	if err != nil {
		return webhook.Delivery{}, fmt.Errorf("marking delivery pending: %w", err)
	}
	if err := r.checkAttemptGuard(ctx, result, id); err != nil {
		return webhook.Delivery{}, err
	}

	return r.GetDelivery(ctx, id)
}

// Close closes the underlying connection pool
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// CreateTables creates the schema (useful for tests and dev bootstrap)
func (r *Repository) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS webhooks (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			url TEXT NOT NULL,
			event_types TEXT[] NOT NULL,
			secret TEXT NOT NULL,
			rate_limit INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS webhooks_tenant_idx ON webhooks (tenant_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			webhook_id TEXT NOT NULL REFERENCES webhooks (id),
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL,
			last_attempt_at TIMESTAMPTZ,
			next_retry_at TIMESTAMPTZ,
			response_code INTEGER,
			response_body TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS deliveries_webhook_idx ON deliveries (webhook_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS deliveries_retry_idx ON deliveries (next_retry_at) WHERE status = 'retrying'`,
	}

	for _, query := range queries {
		if _, err := r.DB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

const selectDelivery = `
	SELECT id, webhook_id, event_type, payload, status, attempts, max_attempts,
	       last_attempt_at, next_retry_at, response_code, response_body, created_at
	FROM deliveries
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (webhook.Delivery, error) {
	var d webhook.Delivery
	var status string
	var payload []byte
	var lastAttemptAt, nextRetryAt sql.NullTime
	var responseCode sql.NullInt64

	err := row.Scan(
		&d.ID, &d.WebhookID, &d.EventType, &payload, &status, &d.Attempts, &d.MaxAttempts,
		&lastAttemptAt, &nextRetryAt, &responseCode, &d.ResponseBody, &d.CreatedAt,
	)
	if err != nil {
		return webhook.Delivery{}, err
	}

	d.Payload = payload
	d.Status = webhook.NewDeliveryStatus(status)
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		d.LastAttemptAt = &t
	}
	if nextRetryAt.Valid {
		t := nextRetryAt.Time
		d.NextRetryAt = &t
	}
	if responseCode.Valid {
		c := int(responseCode.Int64)
		d.ResponseCode = &c
	}
	return d, nil
}

/* checkAttemptGuard distinguishes a missing delivery from a lost optimistic
 * race when a guarded update touched no rows.
 */
func (r *Repository) checkAttemptGuard(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM deliveries WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking delivery existence: %w", err)
	}
	if exists {
		return fmt.Errorf("delivery %s: %w", id, webhook.ErrAttemptConflict)
	}
	return fmt.Errorf("delivery %s: %w", id, webhook.ErrNotFound)
}

func checkAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", id, webhook.ErrNotFound)
	}
	return nil
}
