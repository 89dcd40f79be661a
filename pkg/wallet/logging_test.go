package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type recordingLogger struct {
	mutex   sync.Mutex
	entries []OperationLog
}

func (logger *recordingLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.entries = append(logger.entries, entry)
}

func (logger *recordingLogger) recorded() []OperationLog {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	return append([]OperationLog(nil), logger.entries...)
}

func TestRechargeLogsSuccessEntry(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customer := seedCustomer(test, store, "9876543210", 0)
	seedOffer(test, store, 500, 50, true)
	logger := &recordingLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))

	if _, err := service.Recharge(context.Background(), customer.CustomerID, mustAmount(test, 500), PaymentModeCash, 1); err != nil {
		test.Fatalf("recharge: %v", err)
	}

	entries := logger.recorded()
	if len(entries) != 1 {
		test.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Operation != "recharge" || entry.Status != "ok" {
		test.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.CustomerID != customer.CustomerID {
		test.Fatalf("expected customer %d, got %d", customer.CustomerID, entry.CustomerID)
	}
	if !entry.Amount.Equal(decimal.NewFromInt(500)) || !entry.Bonus.Equal(decimal.NewFromInt(50)) {
		test.Fatalf("unexpected amounts: %s / %s", entry.Amount, entry.Bonus)
	}
	if entry.Error != nil {
		test.Fatalf("expected nil error, got %v", entry.Error)
	}
}

func TestFailedOperationLogsErrorEntry(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	logger := &recordingLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))

	if _, err := service.Recharge(context.Background(), 404, mustAmount(test, 100), PaymentModeCash, 1); err == nil {
		test.Fatal("expected recharge to fail")
	}

	entries := logger.recorded()
	if len(entries) != 1 {
		test.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Status != "error" || entries[0].Error == nil {
		test.Fatalf("expected error entry, got %+v", entries[0])
	}
}

func TestEveryConfiguredLoggerReceivesEntries(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customer := seedCustomer(test, store, "9876543210", 0)
	first := &recordingLogger{}
	second := &recordingLogger{}
	service := mustNewService(test, store, WithOperationLogger(first), WithOperationLogger(second))

	if _, err := service.Recharge(context.Background(), customer.CustomerID, mustAmount(test, 100), PaymentModeUPI, 1); err != nil {
		test.Fatalf("recharge: %v", err)
	}

	if len(first.recorded()) != 1 || len(second.recorded()) != 1 {
		test.Fatalf("expected both loggers to record, got %d and %d", len(first.recorded()), len(second.recorded()))
	}
}

func TestSweepLogsFlippedCount(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customer := seedCustomer(test, store, "9876543210", 1000)
	logger := &recordingLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))

	started := service.nowFn().Add(-3 * time.Hour)
	_, err := store.CreateSession(context.Background(), Session{
		CustomerID:     customer.CustomerID,
		Children:       1,
		DurationHours:  decimal.NewFromInt(2),
		ActualCost:     decimal.NewFromInt(400),
		DiscountedCost: decimal.NewFromInt(400),
		StartedAt:      started,
		ExpectedEndAt:  started.Add(2 * time.Hour),
		Status:         StatusActive,
	})
	if err != nil {
		test.Fatalf("create session: %v", err)
	}

	flipped, err := service.SweepOverdue(context.Background())
	if err != nil {
		test.Fatalf("sweep: %v", err)
	}
	if flipped != 1 {
		test.Fatalf("expected 1 flip, got %d", flipped)
	}

	entries := logger.recorded()
	if len(entries) != 1 {
		test.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Operation != "sweep_overdue" || entry.Status != "ok" {
		test.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Count != 1 {
		test.Fatalf("expected count 1, got %d", entry.Count)
	}
	if entry.SessionID != 0 {
		test.Fatalf("a bulk sweep names no single session, got id %d", entry.SessionID)
	}
}

func TestSweepWithoutWorkStaysSilent(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	logger := &recordingLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))

	if _, err := service.SweepOverdue(context.Background()); err != nil {
		test.Fatalf("sweep: %v", err)
	}
	if len(logger.recorded()) != 0 {
		test.Fatalf("expected no entries for an empty sweep, got %d", len(logger.recorded()))
	}
}
