package cart

import (
	"context"
	"strings"

	"wristwatch-be/internal/apperror"
	"wristwatch-be/internal/catalog"
	"wristwatch-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceSource is the live catalog. Every price used by the cart comes from here.
type PriceSource interface {
	Lookup(ctx context.Context, id string) (*catalog.Watch, error)
	LookupMany(ctx context.Context, ids []string) (map[string]*catalog.Watch, error)
}

// Service defines the business logic for carts.
type Service interface {
	AddItem(ctx context.Context, userID uint, itemID string, quantity int) (*Line, error)
	AddItems(ctx context.Context, userID uint, items []ItemRequest) ([]*Line, error)
	GetCart(ctx context.Context, userID uint) (*Cart, error)
	UpdateItem(ctx context.Context, userID uint, lineID string, quantity int) (*Line, error)
	RemoveItem(ctx context.Context, userID uint, lineID string) error
}

type service struct {
	repo    Repository
	catalog PriceSource
}

func NewService(repo Repository, catalog PriceSource) Service {
	return &service{repo: repo, catalog: catalog}
}

func (s *service) AddItem(ctx context.Context, userID uint, itemID string, quantity int) (*Line, error) {
	const op = "cart.addItem"

	if userID == 0 {
		return nil, apperror.Unauthorized(op, ErrUserNotAuthenticated.Error())
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apperror.Validation(op, "itemId")
	}
	if quantity < 0 {
		return nil, apperror.Invalid(op, ErrInvalidQuantity.Error())
	}
	if quantity == 0 {
		quantity = 1
	}

	watch, err := s.catalog.Lookup(ctx, itemID)
	if err != nil {
		return nil, err
	}

	line, err := s.repo.Upsert(ctx, UpsertParams{
		UserID:    userID,
		WatchID:   watch.ID,
		Quantity:  quantity,
		UnitPrice: watch.Price,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, op, ErrFailedUpsertCartItem.Error(), err)
	}
	line.Watch = watch

	logger.FromCtx(ctx).Info("cart item added",
		zap.String("line_id", line.ID),
		zap.String("watch_id", watch.ID),
		zap.Int("quantity", line.Quantity),
	)
	return line, nil
}

// AddItems applies AddItem to each entry. Items missing from the catalog are
// skipped; any other failure stops the batch.
func (s *service) AddItems(ctx context.Context, userID uint, items []ItemRequest) ([]*Line, error) {
	const op = "cart.addItems"

	if userID == 0 {
		return nil, apperror.Unauthorized(op, ErrUserNotAuthenticated.Error())
	}
	if len(items) == 0 {
		return nil, apperror.Invalid(op, ErrNoItems.Error())
	}

	lines := make([]*Line, 0, len(items))
	for _, it := range items {
		line, err := s.AddItem(ctx, userID, it.ItemID, it.Quantity)
		if apperror.Is(err, apperror.KindNotFound) {
			logger.FromCtx(ctx).Warn("skipping unknown cart item", zap.String("watch_id", it.ItemID))
			continue
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// GetCart prices every unpaid line against the catalog as it is now.
// Lines whose watch is gone keep their stored total and are left out of the subtotal.
func (s *service) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	const op = "cart.getCart"

	if userID == 0 {
		return nil, apperror.Unauthorized(op, ErrUserNotAuthenticated.Error())
	}

	lines, err := s.repo.ListUnpaid(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, op, ErrFailedGetCart.Error(), err)
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.WatchID)
	}
	watches, err := s.catalog.LookupMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		w, ok := watches[l.WatchID]
		if !ok {
			continue
		}
		l.Watch = w
		l.UnitPrice = w.Price
		l.LineTotal = LineTotal(w.Price, l.Quantity)
		subtotal = subtotal.Add(l.LineTotal)
	}

	return &Cart{Lines: lines, Subtotal: subtotal}, nil
}

func (s *service) UpdateItem(ctx context.Context, userID uint, lineID string, quantity int) (*Line, error) {
	const op = "cart.updateItem"

	if userID == 0 {
		return nil, apperror.Unauthorized(op, ErrUserNotAuthenticated.Error())
	}
	lineID = strings.TrimSpace(lineID)
	if lineID == "" {
		return nil, apperror.Validation(op, "itemId")
	}
	if quantity < 1 {
		return nil, apperror.Invalid(op, ErrInvalidQuantity.Error())
	}

	current, err := s.repo.GetLine(ctx, userID, lineID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, op, ErrFailedUpdateCart.Error(), err)
	}
	if current == nil {
		return nil, apperror.NotFound(op, ErrCartItemNotFound.Error())
	}

	price := current.UnitPrice
	watch, err := s.catalog.Lookup(ctx, current.WatchID)
	switch {
	case err == nil:
		price = watch.Price
	case apperror.Is(err, apperror.KindNotFound):
		watch = nil
	default:
		return nil, err
	}

	line, err := s.repo.UpdateQuantity(ctx, UpdateQuantityParams{
		UserID:    userID,
		LineID:    lineID,
		Quantity:  quantity,
		UnitPrice: price,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, op, ErrFailedUpdateCart.Error(), err)
	}
	if line == nil {
		return nil, apperror.NotFound(op, ErrCartItemNotFound.Error())
	}
	line.Watch = watch
	return line, nil
}

func (s *service) RemoveItem(ctx context.Context, userID uint, lineID string) error {
	const op = "cart.removeItem"

	if userID == 0 {
		return apperror.Unauthorized(op, ErrUserNotAuthenticated.Error())
	}
	lineID = strings.TrimSpace(lineID)
	if lineID == "" {
		return apperror.Validation(op, "itemId")
	}

	deleted, err := s.repo.Delete(ctx, userID, lineID)
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, op, ErrFailedRemoveCart.Error(), err)
	}
	if !deleted {
		return apperror.NotFound(op, ErrCartItemNotFound.Error())
	}
	return nil
}
