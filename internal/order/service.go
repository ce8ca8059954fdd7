package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wristwatch-be/internal/apperror"
	"wristwatch-be/internal/cart"
	"wristwatch-be/internal/db"
	"wristwatch-be/internal/events"
	"wristwatch-be/internal/logger"
	"wristwatch-be/internal/metrics"
	"wristwatch-be/internal/payment"
	"wristwatch-be/internal/user"
	"wristwatch-be/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Service interface {
	InitializePayment(ctx context.Context, userID uint, in InitializeInput) (*InitializeResult, error)
	Checkout(ctx context.Context, userID uint, in CheckoutInput) (*CheckoutResult, error)
	VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error)
	GetPaymentStatus(ctx context.Context, userID uint, reference string) (*PaymentStatusResult, error)
}

type Config struct {
	Currency        string
	ShippingFee     decimal.Decimal
	TaxRate         decimal.Decimal
	ReferencePrefix string
	BaseURL         string
	PaymentTimeout  time.Duration
}

type Option func(*service)

// WithClock replaces time.Now for references and paid timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *service) { s.publisher = p }
}

func WithMetrics(m *metrics.Business) Option {
	return func(s *service) { s.metrics = m }
}

// WithCatalog attaches watch details to lines returned by reconciliation and status reads.
func WithCatalog(c cart.PriceSource) Option {
	return func(s *service) { s.catalog = c }
}

type service struct {
	repo      Repository
	carts     cart.Service
	users     user.Directory
	gateway   payment.Gateway
	publisher events.Publisher
	metrics   *metrics.Business
	catalog   cart.PriceSource
	cfg       Config
	now       func() time.Time
	verifies  singleflight.Group
}

func NewService(
	repo Repository,
	carts cart.Service,
	users user.Directory,
	gateway payment.Gateway,
	cfg Config,
	opts ...Option,
) Service {
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 15 * time.Second
	}
	if cfg.ReferencePrefix == "" {
		cfg.ReferencePrefix = "watch"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	s := &service{
		repo:      repo,
		carts:     carts,
		users:     users,
		gateway:   gateway,
		publisher: events.Nop{},
		metrics:   metrics.NewNop(),
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// paymentRequest lists the inputs payment initialization needs, in reporting order.
type paymentRequest struct {
	UserID          uint   `json:"userId" validate:"required"`
	Email           string `json:"email" validate:"required"`
	DeliveryAddress string `json:"deliveryAddress" validate:"required"`
	DeliveryPhone   string `json:"deliveryPhone" validate:"required"`
}

func (s *service) InitializePayment(ctx context.Context, userID uint, in InitializeInput) (*InitializeResult, error) {
	const op = "order.initializePayment"
	log := logger.FromCtx(ctx).With(zap.String("method", "InitializePayment"))

	email, err := s.users.ContactEmail(ctx, userID)
	if err != nil {
		return nil, err
	}

	req := paymentRequest{
		UserID:          userID,
		Email:           email,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		DeliveryPhone:   strings.TrimSpace(in.DeliveryPhone),
	}
	if err := validation.Struct(op, req); err != nil {
		log.Warn("payment initialization rejected", zap.Strings("missing", apperror.FieldsOf(err)))
		return nil, err
	}

	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, apperror.NotFound(op, ErrCartEmpty.Error())
	}

	pricing := NewPricing(c.Subtotal, s.cfg.ShippingFee, s.cfg.TaxRate)
	now := s.now()
	reference := fmt.Sprintf("%s_%d_%d", s.cfg.ReferencePrefix, userID, now.UnixMilli())
	log = log.With(zap.String("reference", reference))

	o := &Order{
		Reference:       reference,
		UserID:          userID,
		Subtotal:        pricing.Subtotal,
		ShippingFee:     pricing.ShippingFee,
		Tax:             pricing.Tax,
		Total:           pricing.Total,
		Currency:        s.cfg.Currency,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryPhone:   req.DeliveryPhone,
		PaymentStatus:   PaymentPending,
		CreatedAt:       now,
	}
	if err := s.repo.CreatePending(ctx, o); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.Conflict(op, ErrDuplicateOrder.Error(), err)
		}
		return nil, apperror.Internal(op, err)
	}
	s.metrics.CheckoutStarted.Inc()

	pctx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	timer := metrics.StartTimer()
	resp, err := s.gateway.Initialize(pctx, payment.InitializeRequest{
		Reference:   reference,
		Email:       email,
		Amount:      pricing.MinorUnits(),
		Currency:    s.cfg.Currency,
		CallbackURL: s.cfg.BaseURL + "/cart/verify-payment/" + reference,
		Metadata: map[string]any{
			"userId":          fmt.Sprint(userID),
			"cartItems":       len(c.Lines),
			"deliveryAddress": req.DeliveryAddress,
			"deliveryPhone":   req.DeliveryPhone,
			"totalAmount":     pricing.Total.String(),
		},
	})
	timer.ObserveSeconds(s.metrics.ProviderLatency.WithLabelValues("initialize").Observe)
	if err != nil {
		s.metrics.PaymentInitialized.WithLabelValues("failed").Inc()
		log.Error("payment provider initialization failed", zap.Error(err))
		if mErr := s.repo.MarkFailed(ctx, reference); mErr != nil {
			log.Error("failed to mark order failed", zap.Error(mErr))
		}
		return nil, asPayment(op, "payment initialization failed", err)
	}

	if err := s.repo.AttachPayment(ctx, userID, reference, resp.AccessCode, resp.AuthorizationURL); err != nil {
		return nil, apperror.Internal(op, err)
	}
	s.metrics.PaymentInitialized.WithLabelValues("ok").Inc()

	log.Info("payment initialized",
		zap.Int("lines", len(c.Lines)),
		zap.String("total", pricing.Total.String()),
	)

	return &InitializeResult{
		AuthorizationURL: resp.AuthorizationURL,
		AccessCode:       resp.AccessCode,
		Reference:        reference,
		Amount:           pricing.Total,
		Shipping:         pricing.ShippingFee,
		Tax:              pricing.Tax,
		Subtotal:         pricing.Subtotal,
	}, nil
}

func (s *service) Checkout(ctx context.Context, userID uint, in CheckoutInput) (*CheckoutResult, error) {
	const op = "order.checkout"

	if userID == 0 {
		return nil, apperror.Unauthorized(op, ErrUnauthorized.Error())
	}
	method := in.PaymentMethod
	if method == "" {
		method = cart.PaymentCard
	}
	if !method.Valid() {
		return nil, apperror.Invalid(op, ErrInvalidPayMethod.Error())
	}

	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, apperror.NotFound(op, ErrCartEmpty.Error())
	}

	n, err := s.repo.CheckoutUnpaid(ctx, CheckoutParams{
		UserID:           userID,
		DeliveryAddress:  strings.TrimSpace(in.DeliveryAddress),
		DeliveryPhone:    strings.TrimSpace(in.DeliveryPhone),
		PaymentMethod:    method,
		PaymentReference: strings.TrimSpace(in.PaymentReference),
		AccessCode:       strings.TrimSpace(in.AccessCode),
		Total:            c.Subtotal,
		PaidAt:           s.now(),
	})
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	logger.FromCtx(ctx).Info("checkout complete", zap.Int64("lines", n))
	return &CheckoutResult{TotalPrice: c.Subtotal, LinesPaid: n}, nil
}

// VerifyPayment confirms the reference with the provider and marks its lines
// paid. Only the first successful confirmation writes; repeats report
// already_processed. Concurrent calls for one reference share a single run,
// which outlives any one caller giving up.
func (s *service) VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error) {
	const op = "order.verifyPayment"

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperror.Validation(op, "reference")
	}

	fctx := context.WithoutCancel(ctx)
	ch := s.verifies.DoChan(reference, func() (any, error) {
		return s.verify(fctx, reference)
	})

	select {
	case <-ctx.Done():
		return nil, apperror.Internal(op, ctx.Err())
	case res := <-ch:
		if res.Shared {
			logger.FromCtx(ctx).Debug("verification shared with concurrent caller", zap.String("reference", reference))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*VerifyResult), nil
	}
}

func (s *service) verify(ctx context.Context, reference string) (*VerifyResult, error) {
	const op = "order.verifyPayment"
	log := logger.FromCtx(ctx).With(zap.String("reference", reference))

	o, err := s.repo.GetOrder(ctx, reference)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}
	if o == nil {
		s.metrics.PaymentVerified.WithLabelValues("not_found").Inc()
		return nil, apperror.NotFound(op, ErrReferenceNotFound.Error())
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	timer := metrics.StartTimer()
	ver, err := s.gateway.Verify(pctx, reference)
	timer.ObserveSeconds(s.metrics.ProviderLatency.WithLabelValues("verify").Observe)
	if err != nil {
		s.metrics.PaymentVerified.WithLabelValues("error").Inc()
		return nil, asPayment(op, "payment verification failed", err)
	}
	if !ver.Success {
		s.metrics.PaymentVerified.WithLabelValues("unsuccessful").Inc()
		log.Warn("provider reports payment not successful", zap.String("status", ver.Status))
		return nil, apperror.Payment(op, ErrPaymentNotSuccess.Error(), fmt.Errorf("provider status %q", ver.Status))
	}
	if want := o.MinorUnits(); ver.Amount != want {
		s.metrics.PaymentVerified.WithLabelValues("amount_mismatch").Inc()
		log.Error("provider amount differs from order total",
			zap.Int64("paid", ver.Amount),
			zap.Int64("expected", want),
		)
		return nil, apperror.Payment(op, ErrAmountMismatch.Error(), fmt.Errorf("paid %d, expected %d", ver.Amount, want))
	}

	paidAt := s.now()
	changed, err := s.repo.MarkPaid(ctx, reference, ver.Raw, paidAt)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	lines, err := s.repo.LinesByReference(ctx, reference)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}
	if len(lines) == 0 {
		// Paid, but the cart was changed or re-initialized after this order was created.
		if err := s.repo.MarkUnapplied(ctx, reference, ver.Raw, paidAt); err != nil {
			return nil, apperror.Internal(op, err)
		}
		s.metrics.PaymentVerified.WithLabelValues("unapplied").Inc()
		log.Error("payment confirmed for an order with no lines",
			zap.String("order_status", string(o.PaymentStatus)),
			zap.Uint("user_id", o.UserID),
		)
		return nil, apperror.Conflict(op, ErrOrderSuperseded.Error(), nil)
	}
	s.enrich(ctx, lines)

	status := VerifyAlreadyProcessed
	if changed > 0 {
		status = VerifyPaid
		s.onPaid(ctx, reference, lines)
	}
	s.metrics.PaymentVerified.WithLabelValues(string(status)).Inc()
	log.Info("payment reconciled", zap.String("status", string(status)), zap.Int64("lines_changed", changed))

	return &VerifyResult{
		Status:      status,
		Lines:       lines,
		OrderNumber: reference,
		DeliveryInfo: DeliveryInfo{
			Address: lines[0].DeliveryAddress,
			Phone:   lines[0].DeliveryPhone,
		},
		Transaction: ver.Raw,
	}, nil
}

func (s *service) onPaid(ctx context.Context, reference string, lines []*cart.Line) {
	first := lines[0]
	total := decimal.Zero
	if first.OrderTotal.Valid {
		total = first.OrderTotal.Decimal
	}
	paidAt := s.now()
	if first.PaidAt != nil {
		paidAt = *first.PaidAt
	}

	s.metrics.OrdersPaid.Inc()
	s.metrics.OrderValue.Observe(total.InexactFloat64())

	err := s.publisher.PublishOrderPaid(ctx, events.OrderPaid{
		Reference: reference,
		UserID:    first.UserID,
		Total:     total.String(),
		Currency:  s.cfg.Currency,
		LineCount: len(lines),
		PaidAt:    paidAt,
	})
	if err != nil {
		logger.FromCtx(ctx).Warn("order paid event not published", zap.String("reference", reference), zap.Error(err))
	}
}

func (s *service) GetPaymentStatus(ctx context.Context, userID uint, reference string) (*PaymentStatusResult, error) {
	const op = "order.getPaymentStatus"

	if userID == 0 {
		return nil, apperror.Unauthorized(op, ErrUnauthorized.Error())
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperror.Validation(op, "reference")
	}

	lines, err := s.repo.LinesByUserAndReference(ctx, userID, reference)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}
	if len(lines) == 0 {
		return nil, apperror.NotFound(op, ErrOrderNotFound.Error())
	}
	s.enrich(ctx, lines)

	status := "pending"
	if lines[0].IsPaid {
		status = "paid"
	}
	return &PaymentStatusResult{
		Lines:          lines,
		PaymentStatus:  status,
		OrderStatus:    lines[0].OrderStatus,
		DeliveryStatus: lines[0].DeliveryStatus,
	}, nil
}

// enrich is best effort; a catalog failure leaves Watch nil.
func (s *service) enrich(ctx context.Context, lines []*cart.Line) {
	if s.catalog == nil {
		return
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.WatchID)
	}
	watches, err := s.catalog.LookupMany(ctx, ids)
	if err != nil {
		logger.FromCtx(ctx).Warn("could not load watches for order lines", zap.Error(err))
		return
	}
	for _, l := range lines {
		l.Watch = watches[l.WatchID]
	}
}

func asPayment(op, message string, err error) error {
	if apperror.Is(err, apperror.KindPayment) {
		return err
	}
	return apperror.Payment(op, message, err)
}
