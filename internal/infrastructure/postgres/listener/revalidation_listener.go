package listener

import (
	"context"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"horizon/internal/infrastructure/postgres"
)

const (
	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
)

// Invalidator drops locally cached renderings of a path.
type Invalidator interface {
	InvalidateLocal(path string)
}

// RevalidationListener applies page revalidations broadcast by other
// instances to this instance's cache.
type RevalidationListener struct {
	connStr     string
	invalidator Invalidator
	logger      *slog.Logger
	shutdownCh  chan struct{}
	done        chan struct{}
}

func NewRevalidationListener(connStr string, invalidator Invalidator, logger *slog.Logger) *RevalidationListener {
	return &RevalidationListener{
		connStr:     connStr,
		invalidator: invalidator,
		logger:      logger,
		shutdownCh:  make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins listening in a background goroutine
func (l *RevalidationListener) Start(ctx context.Context) {
	go l.listen(ctx)
	l.logger.Info("revalidation listener started", slog.String("channel", postgres.RevalidationChannel))
}

// Stop shuts down the listener and waits for it to exit
func (l *RevalidationListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	l.logger.Info("revalidation listener stopped")
}

func (l *RevalidationListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			l.logger.Info("reconnecting revalidation listener")
		}
	}
}

func (l *RevalidationListener) connectAndListen(ctx context.Context) {
	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			l.logger.Info("revalidation listener connected")
		case pq.ListenerEventDisconnected:
			l.logger.Warn("revalidation listener disconnected")
		case pq.ListenerEventReconnected:
			l.logger.Info("revalidation listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			l.logger.Warn("revalidation listener connection attempt failed", slog.Any("error", err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(postgres.RevalidationChannel); err != nil {
		l.logger.Error("listen failed", slog.String("channel", postgres.RevalidationChannel), slog.String("error", err.Error()))
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			if n == nil {
				// connection lost; reconnect
				return
			}
			l.handle(n)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Warn("revalidation listener ping failed", slog.String("error", err.Error()))
				}
			}()
		}
	}
}

func (l *RevalidationListener) handle(n *pq.Notification) {
	if n.Extra == "" {
		return
	}
	l.invalidator.InvalidateLocal(n.Extra)
	l.logger.Debug("applied remote revalidation", slog.String("path", n.Extra))
}
