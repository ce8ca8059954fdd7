package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wristwatch-be/internal/auth"
	"wristwatch-be/internal/cart"
	"wristwatch-be/internal/catalog"
	"wristwatch-be/internal/config"
	"wristwatch-be/internal/db"
	"wristwatch-be/internal/events"
	"wristwatch-be/internal/handler"
	"wristwatch-be/internal/logger"
	"wristwatch-be/internal/metrics"
	"wristwatch-be/internal/middleware"
	"wristwatch-be/internal/order"
	"wristwatch-be/internal/payment"
	"wristwatch-be/internal/payment/webhook"
	"wristwatch-be/internal/user"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.NewDatabase
	startServerFunc = func(srv *http.Server) error {
		return srv.ListenAndServe()
	}
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := initDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	publisher, err := events.Connect(cfg.NatsURL)
	if err != nil {
		return err
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newServer(cfg, database, publisher, reg)
	go app.limiter.Cleanup(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.L().Info("HTTP server running", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))

	errCh := make(chan error, 1)
	go func() { errCh <- startServerFunc(srv) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type server struct {
	handler http.Handler
	limiter *middleware.RateLimiter
}

type routes struct {
	carts       *handler.CartHandler
	payments    *handler.PaymentHandler
	webhook     http.Handler
	auth        *middleware.Auth
	limiter     *middleware.RateLimiter
	httpMetrics *metrics.HTTP
	gatherer    prometheus.Gatherer
	corsOrigins []string
}

func newServer(cfg *config.Config, database *sql.DB, publisher events.Publisher, reg *prometheus.Registry) *server {
	business := metrics.NewBusiness(reg)

	watches := catalog.NewService(catalog.NewRepository(database), cfg.BaseURL)
	carts := cart.NewService(cart.NewRepository(database), watches)
	users := user.NewDirectory(user.NewRepository(database))
	gateway := payment.NewPaystackGateway(cfg.PaystackSecretKey, cfg.PaystackBaseURL)

	orders := order.NewService(
		order.NewRepository(database),
		carts,
		users,
		gateway,
		order.Config{
			Currency:        cfg.Currency,
			ShippingFee:     decimal.NewFromFloat(cfg.ShippingFee),
			TaxRate:         decimal.NewFromFloat(cfg.TaxRate),
			ReferencePrefix: cfg.ReferencePrefix,
			BaseURL:         cfg.BaseURL,
			PaymentTimeout:  cfg.PaymentTimeout,
		},
		order.WithPublisher(publisher),
		order.WithMetrics(business),
		order.WithCatalog(watches),
	)

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)

	return &server{
		limiter: limiter,
		handler: setupRouter(routes{
			carts:       handler.NewCartHandler(carts),
			payments:    handler.NewPaymentHandler(orders),
			webhook:     webhook.NewPaystackHandler(gateway, payment.NewWebhookLog(database), orders, business),
			auth:        middleware.NewAuth(auth.NewVerifier(cfg.JWTSecret)),
			limiter:     limiter,
			httpMetrics: metrics.NewHTTP(reg),
			gatherer:    reg,
			corsOrigins: cfg.CORSOrigins,
		}),
	}
}

func setupRouter(rt routes) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler(rt.gatherer))
	mux.Handle("POST /webhook/paystack", rt.webhook)

	handler.Register(mux, rt.carts, rt.payments, rt.auth.Require)

	var h http.Handler = mux
	h = rt.limiter.Middleware(h)
	h = rt.auth.Identify(h)
	h = rt.httpMetrics.Middleware(h)
	h = middleware.Recover(h)
	h = middleware.CORS(rt.corsOrigins)(h)
	h = logger.LoggingMiddleware(h)
	h = logger.RequestIDMiddleware(h)
	return h
}
