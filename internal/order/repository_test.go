package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"wristwatch-be/internal/cart"
	"wristwatch-be/internal/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lineCols = []string{
	"id", "user_id", "watch_id", "quantity", "unit_price", "line_total",
	"delivery_status", "order_status", "payment_status", "payment_method",
	"payment_reference", "access_code", "is_paid", "paid_at",
	"delivery_address", "delivery_phone", "shipping_fee", "tax", "order_total",
	"transaction_data", "created_at", "updated_at",
}

func paidLineRows(ref string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(lineCols).AddRow(
		"l1", 1, "w1", 2, "100", "200",
		"processing", "Paid", "completed", "card",
		ref, "ac", true, now,
		"1 Marina", "0801", "1000", "15", "1215",
		[]byte(`{"status":true}`), now, now,
	)
}

func sampleOrder() *Order {
	return &Order{
		Reference:       "watch_1_1700000000000",
		UserID:          1,
		Subtotal:        decimal.NewFromInt(200),
		ShippingFee:     decimal.NewFromInt(1000),
		Tax:             decimal.NewFromInt(15),
		Total:           decimal.NewFromInt(1215),
		Currency:        "NGN",
		DeliveryAddress: "1 Marina",
		DeliveryPhone:   "0801",
		CreatedAt:       time.Now(),
	}
}

func TestRepository_CreatePending(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertsOrderSupersedesOlderAndStampsLines", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()
		repo := NewRepository(conn)
		o := sampleOrder()

		mock.ExpectBegin()
		mock.ExpectExec(`(?s)INSERT INTO orders`).
			WithArgs(o.Reference, o.UserID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				"NGN", "1 Marina", "0801", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`(?s)UPDATE orders\s+SET payment_status = 'superseded'.*WHERE user_id = \$1 AND payment_status = 'pending' AND reference <> \$2`).
			WithArgs(o.UserID, o.Reference).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`(?s)UPDATE carts\s+SET payment_reference = \$1,\s+access_code\s+= NULL.*WHERE user_id = \$7 AND is_paid = false`).
			WithArgs(o.Reference, "1 Marina", "0801", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), o.UserID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, repo.CreatePending(ctx, o))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateReferenceRollsBack", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()
		repo := NewRepository(conn)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err = repo.CreatePending(ctx, sampleOrder())
		assert.True(t, db.IsUniqueViolation(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_AttachPayment(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	repo := NewRepository(conn)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE orders\s+SET access_code = \$2, authorization_url = \$3`).
		WithArgs("ref", "ac", "https://pay").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)UPDATE carts\s+SET access_code = \$2.*WHERE payment_reference = \$1 AND user_id = \$3 AND is_paid = false`).
		WithArgs("ref", "ac", 1).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.AttachPayment(context.Background(), 1, "ref", "ac", "https://pay"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

var orderCols = []string{
	"reference", "user_id", "subtotal", "shipping_fee", "tax", "total", "currency",
	"delivery_address", "delivery_phone", "access_code", "authorization_url",
	"payment_status", "paid_at", "created_at",
}

func TestRepository_GetOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		mock.ExpectQuery(`(?s)SELECT reference, user_id, .* FROM orders\s+WHERE reference = \$1`).
			WithArgs("ref").
			WillReturnRows(sqlmock.NewRows(orderCols).AddRow(
				"ref", 1, "200", "1000", "15", "1215", "NGN",
				"1 Marina", "0801", "ac", nil,
				"superseded", nil, time.Now(),
			))

		o, err := NewRepository(conn).GetOrder(ctx, "ref")
		require.NoError(t, err)
		require.NotNil(t, o)
		assert.Equal(t, int64(121500), o.MinorUnits())
		assert.Equal(t, PaymentSuperseded, o.PaymentStatus)
		assert.Equal(t, "ac", *o.AccessCode)
		assert.Nil(t, o.AuthorizationURL)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		mock.ExpectQuery(`FROM orders`).WillReturnRows(sqlmock.NewRows(orderCols))

		o, err := NewRepository(conn).GetOrder(ctx, "ref")
		require.NoError(t, err)
		assert.Nil(t, o)
	})
}

func TestRepository_MarkUnapplied(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	paidAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)UPDATE orders\s+SET payment_status = 'unapplied'.*WHERE reference = \$1 AND payment_status <> 'completed'`).
		WithArgs("ref", paidAt, `{"status":true}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewRepository(conn).MarkUnapplied(context.Background(), "ref", json.RawMessage(`{"status":true}`), paidAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkFailed(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec(`(?s)UPDATE orders\s+SET payment_status = 'failed'`).
		WithArgs("ref").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, NewRepository(conn).MarkFailed(context.Background(), "ref"))
}

func TestRepository_MarkPaid(t *testing.T) {
	ctx := context.Background()
	paidAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	raw := json.RawMessage(`{"status":true}`)

	t.Run("FirstConfirmationWrites", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()
		repo := NewRepository(conn)

		mock.ExpectBegin()
		mock.ExpectExec(`(?s)UPDATE carts\s+SET is_paid\s+= true.*WHERE payment_reference = \$1 AND is_paid = false`).
			WithArgs("ref", paidAt, string(raw)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`(?s)UPDATE orders\s+SET payment_status = 'completed'`).
			WithArgs("ref", paidAt, string(raw)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := repo.MarkPaid(ctx, "ref", raw, paidAt)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RepeatChangesNothing", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()
		repo := NewRepository(conn)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE carts`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		n, err := repo.MarkPaid(ctx, "ref", raw, paidAt)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OrderUpdateFailureRollsBack", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()
		repo := NewRepository(conn)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE carts`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`UPDATE orders`).WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		n, err := repo.MarkPaid(ctx, "ref", raw, paidAt)
		assert.Error(t, err)
		assert.Equal(t, int64(0), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_LinesByReference(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(`(?s)SELECT .* FROM carts\s+WHERE payment_reference = \$1`).
		WithArgs("ref").
		WillReturnRows(paidLineRows("ref"))

	lines, err := NewRepository(conn).LinesByReference(context.Background(), "ref")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].IsPaid)
	assert.Equal(t, cart.OrderPaid, lines[0].OrderStatus)
	assert.Equal(t, "1215", lines[0].OrderTotal.Decimal.String())
}

func TestRepository_LinesByUserAndReference(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(`(?s)WHERE payment_reference = \$1 AND user_id = \$2`).
		WithArgs("ref", 1).
		WillReturnRows(sqlmock.NewRows(lineCols))

	lines, err := NewRepository(conn).LinesByUserAndReference(context.Background(), 1, "ref")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRepository_CheckoutUnpaid(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	paidAt := time.Now()

	mock.ExpectExec(`(?s)UPDATE carts\s+SET delivery_status\s+= 'pending'.*WHERE user_id = \$1 AND is_paid = false`).
		WithArgs(1, "1 Marina", "0801", "transfer", nil, nil, sqlmock.AnyArg(), paidAt).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewRepository(conn).CheckoutUnpaid(context.Background(), CheckoutParams{
		UserID:          1,
		DeliveryAddress: "1 Marina",
		DeliveryPhone:   "0801",
		PaymentMethod:   cart.PaymentTransfer,
		Total:           decimal.NewFromInt(200),
		PaidAt:          paidAt,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
