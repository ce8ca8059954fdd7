package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"wristwatch-be/internal/cart"
	"wristwatch-be/internal/db"
	"wristwatch-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	CreatePending(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, reference string) (*Order, error)
	AttachPayment(ctx context.Context, userID uint, reference, accessCode, authorizationURL string) error
	MarkFailed(ctx context.Context, reference string) error
	MarkPaid(ctx context.Context, reference string, transaction json.RawMessage, paidAt time.Time) (int64, error)
	MarkUnapplied(ctx context.Context, reference string, transaction json.RawMessage, paidAt time.Time) error
	LinesByReference(ctx context.Context, reference string) ([]*cart.Line, error)
	LinesByUserAndReference(ctx context.Context, userID uint, reference string) ([]*cart.Line, error)
	CheckoutUnpaid(ctx context.Context, p CheckoutParams) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// CreatePending inserts the orders row, supersedes the user's older pending
// orders and stamps reference, delivery and pricing on every unpaid line of
// the user, atomically. A reused reference fails with a unique violation.
func (r *repository) CreatePending(ctx context.Context, o *Order) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (
				reference, user_id,
				subtotal, shipping_fee, tax, total, currency,
				delivery_address, delivery_phone,
				payment_status, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'pending',$10,$10)
		`,
			o.Reference,
			o.UserID,
			o.Subtotal,
			o.ShippingFee,
			o.Tax,
			o.Total,
			o.Currency,
			o.DeliveryAddress,
			o.DeliveryPhone,
			o.CreatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET payment_status = 'superseded', updated_at = NOW()
			WHERE user_id = $1 AND payment_status = 'pending' AND reference <> $2
		`, o.UserID, o.Reference)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE carts
			SET payment_reference = $1,
				access_code       = NULL,
				delivery_address  = $2,
				delivery_phone    = $3,
				shipping_fee      = $4,
				tax               = $5,
				order_total       = $6,
				updated_at        = NOW()
			WHERE user_id = $7 AND is_paid = false
		`, o.Reference, o.DeliveryAddress, o.DeliveryPhone, o.ShippingFee, o.Tax, o.Total, o.UserID)
		return err
	})
}

// GetOrder returns nil, nil when no order carries reference.
func (r *repository) GetOrder(ctx context.Context, reference string) (*Order, error) {
	var o Order
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT reference, user_id, subtotal, shipping_fee, tax, total, currency,
			delivery_address, delivery_phone, access_code, authorization_url,
			payment_status, paid_at, created_at
		FROM orders
		WHERE reference = $1
	`, reference).Scan(
		&o.Reference,
		&o.UserID,
		&o.Subtotal,
		&o.ShippingFee,
		&o.Tax,
		&o.Total,
		&o.Currency,
		&o.DeliveryAddress,
		&o.DeliveryPhone,
		&o.AccessCode,
		&o.AuthorizationURL,
		&status,
		&o.PaidAt,
		&o.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get order",
			zap.String("layer", "repository"),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, err
	}
	o.PaymentStatus = PaymentState(status)
	return &o, nil
}

// AttachPayment records the provider handles on the order and on the lines
// still carrying its reference. Lines released by a cart change since
// CreatePending stay released.
func (r *repository) AttachPayment(ctx context.Context, userID uint, reference, accessCode, authorizationURL string) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET access_code = $2, authorization_url = $3, updated_at = NOW()
			WHERE reference = $1
		`, reference, accessCode, authorizationURL)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE carts
			SET access_code = $2, updated_at = NOW()
			WHERE payment_reference = $1 AND user_id = $3 AND is_paid = false
		`, reference, accessCode, userID)
		return err
	})
}

func (r *repository) MarkFailed(ctx context.Context, reference string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = 'failed', updated_at = NOW()
		WHERE reference = $1 AND payment_status = 'pending'
	`, reference)
	return err
}

// MarkPaid flips every unpaid line carrying reference to paid and completes
// the orders row, in one transaction. The is_paid = false predicate makes the
// flip happen once; later calls change nothing and report zero rows.
func (r *repository) MarkPaid(ctx context.Context, reference string, transaction json.RawMessage, paidAt time.Time) (int64, error) {
	var changed int64
	var payload any
	if len(transaction) > 0 {
		payload = string(transaction)
	}

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE carts
			SET is_paid          = true,
				paid_at          = $2,
				order_status     = 'Paid',
				delivery_status  = 'processing',
				payment_status   = 'completed',
				transaction_data = $3,
				updated_at       = NOW()
			WHERE payment_reference = $1 AND is_paid = false
		`, reference, paidAt, payload)
		if err != nil {
			return err
		}

		changed, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if changed == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET payment_status = 'completed', paid_at = $2, transaction_data = $3, updated_at = NOW()
			WHERE reference = $1
		`, reference, paidAt, payload)
		return err
	})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to mark order paid",
			zap.String("layer", "repository"),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return 0, err
	}
	return changed, nil
}

// MarkUnapplied records a provider-confirmed payment whose lines no longer
// carry reference. The money is on record for a refund or manual fulfilment.
func (r *repository) MarkUnapplied(ctx context.Context, reference string, transaction json.RawMessage, paidAt time.Time) error {
	var payload any
	if len(transaction) > 0 {
		payload = string(transaction)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = 'unapplied', paid_at = $2, transaction_data = $3, updated_at = NOW()
		WHERE reference = $1 AND payment_status <> 'completed'
	`, reference, paidAt, payload)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to mark order unapplied",
			zap.String("layer", "repository"),
			zap.String("reference", reference),
			zap.Error(err),
		)
	}
	return err
}

func (r *repository) LinesByReference(ctx context.Context, reference string) ([]*cart.Line, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+cart.Columns+`
		FROM carts
		WHERE payment_reference = $1
		ORDER BY created_at ASC
	`, reference)
	if err != nil {
		return nil, err
	}
	return cart.ScanLines(rows)
}

func (r *repository) LinesByUserAndReference(ctx context.Context, userID uint, reference string) ([]*cart.Line, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+cart.Columns+`
		FROM carts
		WHERE payment_reference = $1 AND user_id = $2
		ORDER BY created_at ASC
	`, reference, userID)
	if err != nil {
		return nil, err
	}
	return cart.ScanLines(rows)
}

// CheckoutUnpaid marks every unpaid line of the user paid without a provider round trip.
func (r *repository) CheckoutUnpaid(ctx context.Context, p CheckoutParams) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE carts
		SET delivery_status   = 'pending',
			delivery_address  = $2,
			delivery_phone    = $3,
			payment_method    = $4,
			payment_reference = $5,
			access_code       = $6,
			order_total       = $7,
			is_paid           = true,
			paid_at           = $8,
			order_status      = 'Paid',
			updated_at        = NOW()
		WHERE user_id = $1 AND is_paid = false
	`,
		p.UserID,
		nullIfEmpty(p.DeliveryAddress),
		nullIfEmpty(p.DeliveryPhone),
		string(p.PaymentMethod),
		nullIfEmpty(p.PaymentReference),
		nullIfEmpty(p.AccessCode),
		p.Total,
		p.PaidAt,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
