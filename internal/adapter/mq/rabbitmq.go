package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"user-service/internal/domain/user"
	"user-service/pkg/logger"
)

const bufferSize = 128

// Config holds the broker settings.
type Config struct {
	URL      string
	Exchange string
}

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// RabbitMQ publishes user lifecycle events to a topic exchange. Events are
// queued in memory and sent by Worker.
type RabbitMQ struct {
	cfg   Config
	log   *zap.Logger
	conn  *amqp091.Connection
	pubCh channel
	in    chan user.Event
}

// New creates a publisher with an empty buffer. Connect and Init must run
// before Worker.
func New(cfg Config, log *zap.Logger) *RabbitMQ {
	return &RabbitMQ{
		cfg: cfg,
		log: log,
		in:  make(chan user.Event, bufferSize),
	}
}

// Connect dials the broker and opens the publishing channel.
func (r *RabbitMQ) Connect(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	amqpCfg := amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp091.Table{
			"connection_name": "user-service",
		},
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}

	conn, err := amqp091.DialConfig(r.cfg.URL, amqpCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	r.conn = conn
	r.pubCh = ch
	r.log.Info("rabbitmq connected successfully", zap.String("exchange", r.cfg.Exchange))
	return nil
}

// Init declares the durable topic exchange events are published to.
func (r *RabbitMQ) Init() error {
	if r.pubCh == nil {
		return errors.New("rabbitmq channel is not open")
	}
	if err := r.pubCh.ExchangeDeclare(r.cfg.Exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = r.pubCh.Close()
		return fmt.Errorf("failed to declare exchange %q: %w", r.cfg.Exchange, err)
	}
	return nil
}

// Publish queues e for the worker. When the buffer is full the event is
// dropped.
func (r *RabbitMQ) Publish(ctx context.Context, e user.Event) {
	select {
	case r.in <- e:
	default:
		logger.WithContext(ctx, r.log).Warn("event buffer full, dropping event",
			zap.String("event_id", e.ID.String()),
			zap.String("event_type", string(e.Type)),
		)
	}
}

// Worker sends queued events until ctx is cancelled. Events still queued
// at that point are flushed with a short deadline.
func (r *RabbitMQ) Worker(ctx context.Context) {
	r.log.Info("starting publisher worker")
	defer r.log.Info("publisher worker gracefully stopped")

	for {
		select {
		case e := <-r.in:
			r.send(ctx, e)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *RabbitMQ) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case e := <-r.in:
			r.send(ctx, e)
		default:
			return
		}
	}
}

func (r *RabbitMQ) send(ctx context.Context, e user.Event) {
	msg, err := newMessage(e)
	if err != nil {
		r.log.Error("failed to encode event", zap.String("event_id", e.ID.String()), zap.Error(err))
		return
	}
	if err := r.pubCh.PublishWithContext(ctx, r.cfg.Exchange, string(e.Type), false, false, msg); err != nil {
		r.log.Error("mq publish error",
			zap.String("event_id", e.ID.String()),
			zap.String("event_type", string(e.Type)),
			zap.Error(err),
		)
	}
}

func newMessage(e user.Event) (amqp091.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp091.Publishing{}, err
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.OccurredAt,
		Type:         string(e.Type),
		Body:         body,
	}, nil
}

// Close closes the channel and the connection.
func (r *RabbitMQ) Close() error {
	var errs []error
	if r.pubCh != nil {
		if err := r.pubCh.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
	}
	r.log.Info("rabbitmq connection closed")
	return errors.Join(errs...)
}
