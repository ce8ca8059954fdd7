package cart

import (
	"context"
	"database/sql"

	"wristwatch-be/internal/db"
	"wristwatch-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Line, error)
	GetLine(ctx context.Context, userID uint, lineID string) (*Line, error)
	ListUnpaid(ctx context.Context, userID uint) ([]*Line, error)
	UpdateQuantity(ctx context.Context, params UpdateQuantityParams) (*Line, error)
	Delete(ctx context.Context, userID uint, lineID string) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Columns is the select list understood by ScanLine.
const Columns = `
	id, user_id, watch_id, quantity, unit_price, line_total,
	delivery_status, order_status, payment_status, payment_method,
	payment_reference, access_code, is_paid, paid_at,
	delivery_address, delivery_phone, shipping_fee, tax, order_total,
	transaction_data, created_at, updated_at`

// ScanLine reads one row selected with Columns.
func ScanLine(s interface{ Scan(...any) error }) (*Line, error) {
	var (
		l   Line
		raw []byte
	)
	err := s.Scan(
		&l.ID,
		&l.UserID,
		&l.WatchID,
		&l.Quantity,
		&l.UnitPrice,
		&l.LineTotal,
		&l.DeliveryStatus,
		&l.OrderStatus,
		&l.PaymentStatus,
		&l.PaymentMethod,
		&l.PaymentReference,
		&l.AccessCode,
		&l.IsPaid,
		&l.PaidAt,
		&l.DeliveryAddress,
		&l.DeliveryPhone,
		&l.ShippingFee,
		&l.Tax,
		&l.OrderTotal,
		&raw,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		l.TransactionData = raw
	}
	return &l, nil
}

// ScanLines drains rows selected with Columns.
func ScanLines(rows *sql.Rows) ([]*Line, error) {
	defer rows.Close()

	lines := make([]*Line, 0)
	for rows.Next() {
		l, err := ScanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Upsert adds quantity to the user's unpaid line for the watch, creating it
// when absent. The increment happens in the database so concurrent adds for
// the same (user, watch) both land. Any pending payment on the cart is released.
func (r *repository) Upsert(ctx context.Context, p UpsertParams) (*Line, error) {
	var line *Line
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO carts (user_id, watch_id, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, watch_id) WHERE is_paid = false
			DO UPDATE SET
				quantity   = carts.quantity + EXCLUDED.quantity,
				unit_price = EXCLUDED.unit_price,
				line_total = EXCLUDED.unit_price * (carts.quantity + EXCLUDED.quantity),
				updated_at = NOW()
			RETURNING `+Columns,
			p.UserID, p.WatchID, p.Quantity, p.UnitPrice, LineTotal(p.UnitPrice, p.Quantity),
		)

		var err error
		if line, err = ScanLine(row); err != nil {
			return err
		}
		return releasePending(ctx, tx, p.UserID)
	})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to upsert cart line",
			zap.String("layer", "repository"),
			zap.Uint("user_id", p.UserID),
			zap.String("watch_id", p.WatchID),
			zap.Error(err),
		)
		return nil, err
	}
	return line, nil
}

// releasePending detaches the user's unpaid lines from the payment reference
// they were stamped with and supersedes the pending order. A payment that
// still lands on that reference is recorded as unapplied instead of paying
// for a cart it was not priced on.
func releasePending(ctx context.Context, tx *sql.Tx, userID uint) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE carts
		SET payment_reference = NULL, access_code = NULL, updated_at = NOW()
		WHERE user_id = $1 AND is_paid = false AND payment_reference IS NOT NULL
	`, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = 'superseded', updated_at = NOW()
		WHERE user_id = $1 AND payment_status = 'pending'
	`, userID)
	return err
}

// GetLine returns nil, nil when the line is absent, paid, owned by someone
// else, or lineID is not a UUID.
func (r *repository) GetLine(ctx context.Context, userID uint, lineID string) (*Line, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+Columns+`
		FROM carts
		WHERE id = $1 AND user_id = $2 AND is_paid = false
	`, lineID, userID)

	line, err := ScanLine(row)
	if err == sql.ErrNoRows || db.IsInvalidInput(err) {
		return nil, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get cart line",
			zap.String("layer", "repository"),
			zap.String("line_id", lineID),
			zap.Error(err),
		)
		return nil, err
	}
	return line, nil
}

func (r *repository) ListUnpaid(ctx context.Context, userID uint) ([]*Line, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+Columns+`
		FROM carts
		WHERE user_id = $1 AND is_paid = false
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list cart",
			zap.String("layer", "repository"),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	return ScanLines(rows)
}

func (r *repository) UpdateQuantity(ctx context.Context, p UpdateQuantityParams) (*Line, error) {
	var line *Line
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE carts
			SET quantity = $1, unit_price = $2, line_total = $3, updated_at = NOW()
			WHERE id = $4 AND user_id = $5 AND is_paid = false
			RETURNING `+Columns,
			p.Quantity, p.UnitPrice, LineTotal(p.UnitPrice, p.Quantity), p.LineID, p.UserID,
		)

		var err error
		if line, err = ScanLine(row); err != nil {
			return err
		}
		return releasePending(ctx, tx, p.UserID)
	})
	if err == sql.ErrNoRows || db.IsInvalidInput(err) {
		return nil, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update cart line",
			zap.String("layer", "repository"),
			zap.String("line_id", p.LineID),
			zap.Error(err),
		)
		return nil, err
	}
	return line, nil
}

func (r *repository) Delete(ctx context.Context, userID uint, lineID string) (bool, error) {
	var deleted bool
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM carts
			WHERE id = $1 AND user_id = $2 AND is_paid = false
		`, lineID, userID)
		if err != nil {
			return err
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if deleted = rowsAffected > 0; !deleted {
			return nil
		}
		return releasePending(ctx, tx, userID)
	})
	if db.IsInvalidInput(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return deleted, nil
}
