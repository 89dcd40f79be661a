// Package metrics exposes Prometheus counters for wallet operations
// and outbound notifications.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/venueworks/playpass/pkg/wallet"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playpass_operations_total",
		Help: "Wallet operations by operation and outcome.",
	}, []string{"operation", "status"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playpass_notifications_total",
		Help: "Outbound WhatsApp notifications by kind and outcome.",
	}, []string{"kind", "status"})
)

// OperationCounter implements wallet.OperationLogger by counting each
// operation outcome.
type OperationCounter struct{}

// NewOperationCounter returns an OperationCounter.
func NewOperationCounter() *OperationCounter {
	return &OperationCounter{}
}

// LogOperation counts the operation outcome.
func (*OperationCounter) LogOperation(_ context.Context, entry wallet.OperationLog) {
	operationsTotal.WithLabelValues(entry.Operation, entry.Status).Inc()
}

// CountNotification counts a notification attempt outcome.
func CountNotification(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	notificationsTotal.WithLabelValues(kind, status).Inc()
}
