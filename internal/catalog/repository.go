package catalog

import (
	"context"
	"database/sql"
	"time"

	"wristwatch-be/internal/db"
	"wristwatch-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Watch, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Watch, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const watchColumns = `id, name, brand, type, description, price, image, created_at, updated_at`

func scanWatch(s interface{ Scan(...any) error }) (*Watch, error) {
	var w Watch
	err := s.Scan(
		&w.ID,
		&w.Name,
		&w.Brand,
		&w.Type,
		&w.Description,
		&w.Price,
		&w.Image,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByID returns nil, nil when the watch does not exist or id is not a UUID.
func (r *repository) GetByID(ctx context.Context, id string) (*Watch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+watchColumns+` FROM watches WHERE id = $1`, id)

	w, err := scanWatch(row)
	if err == sql.ErrNoRows || db.IsInvalidInput(err) {
		return nil, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get watch",
			zap.String("layer", "repository"),
			zap.String("watch_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	return w, nil
}

func (r *repository) GetByIDs(ctx context.Context, ids []string) ([]*Watch, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetByIDs"),
		zap.Int("id_count", len(ids)),
	)
	start := time.Now()

	// Malformed ids are filtered in SQL so one bad id cannot fail the batch.
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+watchColumns+`
		FROM watches
		WHERE id::text = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	watches := make([]*Watch, 0, len(ids))
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		watches = append(watches, w)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration failed", zap.Error(err))
		return nil, err
	}

	log.Debug("query success",
		zap.Int("rows", len(watches)),
		zap.Duration("duration", time.Since(start)),
	)
	return watches, nil
}
