package httpapi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/venueworks/playpass/internal/metrics"
)

const notificationTimeout = 10 * time.Second

// notifyAsync delivers one message off the request path. The database
// work has already committed; a delivery failure is logged and counted,
// never surfaced to the caller.
func (server *Server) notifyAsync(kind string, send func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()
		err := send(ctx)
		metrics.CountNotification(kind, err)
		if err != nil {
			server.logger.Warn("notification failed", zap.String("kind", kind), zap.Error(err))
		}
	}()
}
