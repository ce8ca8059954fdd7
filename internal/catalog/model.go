package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Watch struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Brand       *string         `json:"brand,omitempty"`
	Type        *string         `json:"type,omitempty"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
