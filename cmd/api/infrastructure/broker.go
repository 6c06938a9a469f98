package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"user-service/internal/adapter/mq"
	"user-service/internal/config"
)

// NewBroker connects the event publisher and declares its exchange.
func NewBroker(ctx context.Context, cfg *config.Config, l *zap.Logger) (*mq.RabbitMQ, error) {
	broker := mq.New(mq.Config{
		URL:      cfg.MQ.URL,
		Exchange: cfg.MQ.Exchange,
	}, l)

	if err := broker.Connect(ctx); err != nil {
		return nil, err
	}
	if err := broker.Init(); err != nil {
		_ = broker.Close()
		return nil, fmt.Errorf("failed to init rabbitmq: %w", err)
	}

	return broker, nil
}
