package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/logfields"
)

// NATSSink publishes events to a JetStream subject so other systems can
// react to publishes and abandonments.
type NATSSink struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	logger  *slog.Logger
}

// NewNATSSink connects to the configured NATS server. The returned sink must
// be closed.
func NewNATSSink(cfg config.NATSConfig, logger *slog.Logger) (*NATSSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	logger.Info("NATS notification sink connected",
		logfields.URL(cfg.URL),
		slog.String("subject", cfg.Subject))

	return &NATSSink{
		conn:    conn,
		js:      js,
		subject: cfg.Subject,
		logger:  logger,
	}, nil
}

func (n *NATSSink) Notify(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("NATS event marshal failed", logfields.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := n.js.Publish(ctx, n.subject, data); err != nil {
		n.logger.Warn("NATS event publish failed",
			slog.String("subject", n.subject),
			logfields.Error(err))
	}
}

// Close closes the NATS connection.
func (n *NATSSink) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
