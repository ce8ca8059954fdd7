package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

const ProviderPaystack = "PAYSTACK"

// WebhookLog records provider push notifications so repeat deliveries are
// detected. A delivery counts as a duplicate only once an earlier copy has
// been processed; unprocessed rows are handed out again for the retry.
type WebhookLog interface {
	SavePaymentWebhook(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		reference string,
		payload json.RawMessage,
		signatureValid bool,
	) (webhookID int64, isDuplicate bool, err error)

	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	// MarkWebhookFailed records reason. A retryable failure leaves the row
	// open so the provider's next delivery is processed again.
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string, retryable bool) error
}

type repository struct {
	db *sql.DB
}

func NewWebhookLog(db *sql.DB) WebhookLog {
	return &repository{db: db}
}

func (r *repository) SavePaymentWebhook(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	reference string,
	payload json.RawMessage,
	signatureValid bool,
) (int64, bool, error) {

	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_type,
		event_id,
		reference,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET
		attempts      = payment_webhooks.attempts + 1,
		payload       = EXCLUDED.payload,
		process_error = NULL
	WHERE payment_webhooks.processed_at IS NULL
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		q,
		provider,
		eventType,
		eventID,
		reference,
		signatureValid,
		string(payload), // jsonb wants text; lib/pq sends []byte as bytea
	).Scan(&id)

	if err != nil {
		// Already processed: the conflict update matched no row
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(
	ctx context.Context,
	webhookID int64,
) error {

	const q = `
	UPDATE payment_webhooks
	SET processed_at = now(), process_error = NULL
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(
	ctx context.Context,
	webhookID int64,
	reason string,
	retryable bool,
) error {

	const q = `
	UPDATE payment_webhooks
	SET process_error = $2,
		processed_at  = CASE WHEN $3 THEN NULL ELSE now() END
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason, retryable)
	return err
}
