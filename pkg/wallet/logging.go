package wallet

import (
	"context"

	"github.com/shopspring/decimal"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing wallet operation. Count
// carries bulk results such as the number of sessions a sweep flipped.
type OperationLog struct {
	Operation  string
	CustomerID int64
	SessionID  int64
	Count      int64
	Amount     decimal.Decimal
	Bonus      decimal.Decimal
	Status     string
	Error      error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.loggers = append(service.loggers, logger)
	}
}
