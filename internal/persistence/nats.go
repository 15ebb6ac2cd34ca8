package persistence

import (
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/deskgate/deskgate/internal/config"
)

// Nats wraps the automation queue connection.
type Nats struct {
	Conn *nats.Conn
}

// NewNats connects to NATS. A missing queue is tolerated; automation
// publishing is skipped until the connection is available.
func NewNats(cfg config.NatsConfig, logger *zap.Logger) *Nats {
	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1))
	if err != nil {
		logger.Warn("unable to reach nats", zap.Error(err))
		return &Nats{}
	}
	logger.Info("connected to nats", zap.String("url", cfg.URL))
	return &Nats{Conn: conn}
}

// Connected reports whether the automation queue is currently reachable.
func (n *Nats) Connected() bool {
	return n != nil && n.Conn != nil && n.Conn.IsConnected()
}

// Close drains and closes the connection.
func (n *Nats) Close() {
	if n != nil && n.Conn != nil {
		n.Conn.Close()
	}
}
