package notifiers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/paolobietolini/atac-realtime/config"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// NATSNotifier publishes each update on "<subject>.<feed_kind>".
type NATSNotifier struct {
	nc      natsConn
	subject string
}

func NewNATSNotifier(cfg config.NATSNotifierConfig) (*NATSNotifier, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("atac-realtime"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSNotifier{nc: nc, subject: cfg.Subject}, nil
}

func (n *NATSNotifier) Notify(_ context.Context, update PartitionUpdate) error {
	data, err := update.Marshal()
	if err != nil {
		return err
	}
	return n.nc.Publish(n.subject+"."+subjectToken(string(update.FeedKind)), data)
}

func (n *NATSNotifier) Close() error {
	err := n.nc.Drain()
	n.nc.Close()
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
