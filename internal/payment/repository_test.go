package payment

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookLog_SavePaymentWebhook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewWebhookLog(db)
	ctx := context.Background()

	provider := ProviderPaystack
	eventID := "evt-1"
	eventType := "charge.success"
	ref := "watch_1_1700000000000"
	payload := []byte(`{}`)
	payloadArg := string(payload)
	valid := true

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_webhooks`).
			WithArgs(provider, eventType, eventID, ref, valid, payloadArg).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

		id, isDup, err := repo.SavePaymentWebhook(ctx, provider, eventID, eventType, ref, payload, valid)
		assert.NoError(t, err)
		assert.False(t, isDup)
		assert.Equal(t, int64(10), id)
	})

	t.Run("UnprocessedRowIsReopened", func(t *testing.T) {
		mock.ExpectQuery(`ON CONFLICT \(provider, event_id\)\s+DO UPDATE SET\s+attempts\s+= payment_webhooks.attempts \+ 1,.*WHERE payment_webhooks.processed_at IS NULL`).
			WithArgs(provider, eventType, eventID, ref, valid, payloadArg).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

		id, isDup, err := repo.SavePaymentWebhook(ctx, provider, eventID, eventType, ref, payload, valid)
		assert.NoError(t, err)
		assert.False(t, isDup)
		assert.Equal(t, int64(10), id)
	})

	t.Run("Duplicate", func(t *testing.T) {
		// a processed row fails the conflict WHERE, so nothing is returned
		mock.ExpectQuery(`INSERT INTO payment_webhooks`).
			WithArgs(provider, eventType, eventID, ref, valid, payloadArg).
			WillReturnError(sql.ErrNoRows)

		id, isDup, err := repo.SavePaymentWebhook(ctx, provider, eventID, eventType, ref, payload, valid)
		assert.NoError(t, err)
		assert.True(t, isDup)
		assert.Equal(t, int64(0), id)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_webhooks`).
			WillReturnError(errors.New("db error"))

		_, isDup, err := repo.SavePaymentWebhook(ctx, provider, eventID, eventType, ref, payload, valid)
		assert.Error(t, err)
		assert.False(t, isDup)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookLog_Mark(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewWebhookLog(db)
	ctx := context.Background()

	t.Run("Processed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_webhooks\s+SET processed_at = now\(\)`).
			WithArgs(int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkWebhookProcessed(ctx, 10))
	})

	t.Run("FailedRetryable", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_webhooks\s+SET process_error = \$2,\s+processed_at\s+= CASE WHEN \$3 THEN NULL ELSE now\(\) END`).
			WithArgs(int64(10), "boom", true).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkWebhookFailed(ctx, 10, "boom", true))
	})

	t.Run("FailedFinal", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_webhooks`).
			WithArgs(int64(11), "declined", false).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkWebhookFailed(ctx, 11, "declined", false))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
