package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wristwatch-be/internal/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const SubjectOrderPaid = "orders.paid"

// OrderPaid is published once per reference, on its first successful reconciliation.
type OrderPaid struct {
	Reference string    `json:"reference"`
	UserID    uint      `json:"userId"`
	Total     string    `json:"total"`
	Currency  string    `json:"currency"`
	LineCount int       `json:"lineCount"`
	PaidAt    time.Time `json:"paidAt"`
}

type Publisher interface {
	PublishOrderPaid(ctx context.Context, evt OrderPaid) error
	Close()
}

// Connect returns a NATS publisher, or a no-op publisher when url is empty.
func Connect(url string) (Publisher, error) {
	if url == "" {
		logger.L().Info("NATS_URL not set, domain events disabled")
		return Nop{}, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("wristwatch-be"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.L().Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.L().Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNATSPublisher(nc), nil
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

type natsPublisher struct {
	nc conn
}

func NewNATSPublisher(nc conn) Publisher {
	return &natsPublisher{nc: nc}
}

func (p *natsPublisher) PublishOrderPaid(ctx context.Context, evt OrderPaid) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(SubjectOrderPaid, data); err != nil {
		logger.FromCtx(ctx).Error("failed to publish event",
			zap.String("subject", SubjectOrderPaid),
			zap.String("reference", evt.Reference),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *natsPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		logger.L().Warn("nats drain failed", zap.Error(err))
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishOrderPaid(context.Context, OrderPaid) error { return nil }
func (Nop) Close()                                            {}
