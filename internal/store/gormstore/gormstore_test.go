package gormstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/venueworks/playpass/pkg/wallet"
)

func openTestStore(test *testing.T) *Store {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		test.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func createTestCustomer(test *testing.T, store *Store, mobile string, balance int64) wallet.Customer {
	test.Helper()
	customer, err := store.CreateCustomer(context.Background(), wallet.Customer{
		Name:           "Store Customer",
		Mobile:         mobile,
		Birthdate:      time.Date(1991, time.April, 9, 0, 0, 0, 0, time.UTC),
		CurrentBalance: decimal.NewFromInt(balance),
		QRToken:        wallet.GenerateQRToken().String(),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		test.Fatalf("create customer: %v", err)
	}
	return customer
}

func createTestSession(test *testing.T, store *Store, customerID int64, startedAt time.Time, duration time.Duration) wallet.Session {
	test.Helper()
	session, err := store.CreateSession(context.Background(), wallet.Session{
		CustomerID:         customerID,
		Adults:             1,
		Children:           1,
		DurationHours:      decimal.NewFromInt(int64(duration / time.Hour)),
		ActualCost:         decimal.NewFromInt(500),
		DiscountedCost:     decimal.NewFromInt(500),
		DiscountPercentage: decimal.Zero,
		StartedAt:          startedAt,
		ExpectedEndAt:      startedAt.Add(duration),
		Status:             wallet.StatusActive,
	})
	if err != nil {
		test.Fatalf("create session: %v", err)
	}
	return session
}

func TestCreateCustomerRejectsDuplicateMobile(test *testing.T) {
	test.Parallel()
	store := openTestStore(test)
	createTestCustomer(test, store, "9876543210", 0)

	_, err := store.CreateCustomer(context.Background(), wallet.Customer{
		Name:           "Second",
		Mobile:         "9876543210",
		Birthdate:      time.Date(1990, time.May, 2, 0, 0, 0, 0, time.UTC),
		CurrentBalance: decimal.Zero,
		QRToken:        wallet.GenerateQRToken().String(),
		CreatedAt:      time.Now().UTC(),
	})
	if !errors.Is(err, wallet.ErrMobileTaken) {
		test.Fatalf("expected ErrMobileTaken, got %v", err)
	}
}

func TestDebitBalanceIfSufficientIsConditional(test *testing.T) {
	test.Parallel()
	store := openTestStore(test)
	customer := createTestCustomer(test, store, "9876543211", 400)
	ctx := context.Background()

	remaining, err := store.DebitBalanceIfSufficient(ctx, customer.CustomerID, decimal.NewFromInt(150))
	if err != nil {
		test.Fatalf("debit: %v", err)
	}
	if !remaining.Equal(decimal.NewFromInt(250)) {
		test.Fatalf("expected 250 remaining, got %s", remaining)
	}

	_, err = store.DebitBalanceIfSufficient(ctx, customer.CustomerID, decimal.NewFromInt(300))
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		test.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	stored, err := store.GetCustomer(ctx, customer.CustomerID)
	if err != nil {
		test.Fatalf("get: %v", err)
	}
	if !stored.CurrentBalance.Equal(decimal.NewFromInt(250)) {
		test.Fatalf("expected balance untouched at 250, got %s", stored.CurrentBalance)
	}

	_, err = store.DebitBalanceIfSufficient(ctx, 404, decimal.NewFromInt(1))
	if !errors.Is(err, wallet.ErrCustomerNotFound) {
		test.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestOpenSessionIndexBlocksSecondSession(test *testing.T) {
	test.Parallel()
	store := openTestStore(test)
	customer := createTestCustomer(test, store, "9876543212", 1000)
	started := time.Now().UTC()
	createTestSession(test, store, customer.CustomerID, started, 2*time.Hour)

	_, err := store.CreateSession(context.Background(), wallet.Session{
		CustomerID:     customer.CustomerID,
		Children:       1,
		DurationHours:  decimal.NewFromInt(1),
		ActualCost:     decimal.NewFromInt(100),
		DiscountedCost: decimal.NewFromInt(100),
		StartedAt:      started,
		ExpectedEndAt:  started.Add(time.Hour),
		Status:         wallet.StatusActive,
	})
	if !errors.Is(err, wallet.ErrSessionActive) {
		test.Fatalf("expected ErrSessionActive from the unique index, got %v", err)
	}
}

func TestCloseSessionIsCompareAndSwap(test *testing.T) {
	test.Parallel()
	store := openTestStore(test)
	customer := createTestCustomer(test, store, "9876543213", 1000)
	started := time.Now().UTC()
	session := createTestSession(test, store, customer.CustomerID, started, time.Hour)
	ctx := context.Background()

	affected, err := store.CloseSession(ctx, session.SessionID, started.Add(30*time.Minute))
	if err != nil {
		test.Fatalf("close: %v", err)
	}
	if affected != 1 {
		test.Fatalf("expected 1 row, got %d", affected)
	}

	again, err := store.CloseSession(ctx, session.SessionID, started.Add(40*time.Minute))
	if err != nil {
		test.Fatalf("second close: %v", err)
	}
	if again != 0 {
		test.Fatalf("expected 0 rows on second close, got %d", again)
	}
	closed, err := store.GetSession(ctx, session.SessionID)
	if err != nil {
		test.Fatalf("get session: %v", err)
	}
	if closed.Status != wallet.StatusCompleted || closed.EndedAt == nil {
		test.Fatalf("unexpected closed session: %+v", closed)
	}
	if !closed.EndedAt.Equal(started.Add(30 * time.Minute)) {
		test.Fatalf("second close must not overwrite the end time, got %s", closed.EndedAt)
	}
}

func TestMarkOverdueSessionsFlipsOnlyExpired(test *testing.T) {
	test.Parallel()
	store := openTestStore(test)
	first := createTestCustomer(test, store, "9876543214", 1000)
	second := createTestCustomer(test, store, "9876543215", 1000)
	now := time.Now().UTC()
	expired := createTestSession(test, store, first.CustomerID, now.Add(-3*time.Hour), 2*time.Hour)
	running := createTestSession(test, store, second.CustomerID, now, 2*time.Hour)
	ctx := context.Background()

	flipped, err := store.MarkOverdueSessions(ctx, now)
	if err != nil {
		test.Fatalf("sweep: %v", err)
	}
	if flipped != 1 {
		test.Fatalf("expected 1 flip, got %d", flipped)
	}
	flippedSession, _ := store.GetSession(ctx, expired.SessionID)
	untouched, _ := store.GetSession(ctx, running.SessionID)
	if flippedSession.Status != wallet.StatusOverdue || untouched.Status != wallet.StatusActive {
		test.Fatalf("unexpected statuses: %s / %s", flippedSession.Status, untouched.Status)
	}
}

func TestSumRechargesByModeAggregates(test *testing.T) {
	test.Parallel()
	store := openTestStore(test)
	customer := createTestCustomer(test, store, "9876543216", 0)
	ctx := context.Background()
	now := time.Now().UTC()
	adminID := int64(1)
	rows := []wallet.Transaction{
		{CustomerID: customer.CustomerID, AdminID: &adminID, Kind: wallet.KindRecharge, Amount: decimal.NewFromInt(300), PaymentMode: wallet.PaymentModeCash, RecordedAt: now},
		{CustomerID: customer.CustomerID, AdminID: &adminID, Kind: wallet.KindRecharge, Amount: decimal.NewFromInt(200), PaymentMode: wallet.PaymentModeUPI, RecordedAt: now},
		{CustomerID: customer.CustomerID, AdminID: &adminID, Kind: wallet.KindBonus, Amount: decimal.NewFromInt(50), PaymentMode: wallet.PaymentModeSystem, RecordedAt: now},
	}
	for _, row := range rows {
		if _, err := store.InsertTransaction(ctx, row); err != nil {
			test.Fatalf("insert: %v", err)
		}
	}

	sums, err := store.SumRechargesByMode(ctx, wallet.TransactionFilter{})
	if err != nil {
		test.Fatalf("sums: %v", err)
	}
	if !sums.Cash.Equal(decimal.NewFromInt(300)) || !sums.UPI.Equal(decimal.NewFromInt(200)) {
		test.Fatalf("unexpected per-mode sums: %+v", sums)
	}
	if !sums.Total.Equal(decimal.NewFromInt(500)) {
		test.Fatalf("bonus rows must not count as recharge turnover, got %s", sums.Total)
	}

	records, total, err := store.ListTransactions(ctx, wallet.TransactionFilter{Limit: 2})
	if err != nil {
		test.Fatalf("list: %v", err)
	}
	if total != 3 || len(records) != 2 {
		test.Fatalf("expected total=3 page=2, got total=%d page=%d", total, len(records))
	}
	if records[0].CustomerMobile != customer.Mobile {
		test.Fatalf("expected joined customer mobile, got %q", records[0].CustomerMobile)
	}
}

func TestListBirthdayCustomersFiltersByMonth(test *testing.T) {
	test.Parallel()
	store := openTestStore(test)
	ctx := context.Background()
	makeCustomer := func(mobile string, birthdate time.Time) {
		_, err := store.CreateCustomer(ctx, wallet.Customer{
			Name:           "Birthday " + mobile,
			Mobile:         mobile,
			Birthdate:      birthdate,
			CurrentBalance: decimal.Zero,
			QRToken:        wallet.GenerateQRToken().String(),
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			test.Fatalf("create: %v", err)
		}
	}
	makeCustomer("9000000031", time.Date(1992, time.June, 25, 0, 0, 0, 0, time.UTC))
	makeCustomer("9000000032", time.Date(1994, time.June, 3, 0, 0, 0, 0, time.UTC))
	makeCustomer("9000000033", time.Date(1994, time.July, 3, 0, 0, 0, 0, time.UTC))

	matched, total, err := store.ListBirthdayCustomers(ctx, time.June, "", 0, 10)
	if err != nil {
		test.Fatalf("birthdays: %v", err)
	}
	if total != 2 || len(matched) != 2 {
		test.Fatalf("expected 2 june birthdays, got total=%d len=%d", total, len(matched))
	}
	if matched[0].Birthdate.Day() != 3 || matched[1].Birthdate.Day() != 25 {
		test.Fatalf("expected day-of-month ordering, got %d then %d", matched[0].Birthdate.Day(), matched[1].Birthdate.Day())
	}
}

func TestSavePricingPlanRoundTrip(test *testing.T) {
	test.Parallel()
	store := openTestStore(test)
	ctx := context.Background()

	plan, err := store.SavePricingPlan(ctx, wallet.PricingPlan{
		Label:          "2 Hour Play",
		Type:           wallet.PlanTypePlan,
		Price:          decimal.NewFromInt(500),
		DurationHours:  decimal.NewFromInt(2),
		IncludedAdults: 1,
		Active:         true,
	})
	if err != nil {
		test.Fatalf("save plan: %v", err)
	}
	if plan.PlanID == 0 {
		test.Fatal("expected an assigned plan id")
	}

	addon, err := store.SavePricingPlan(ctx, wallet.PricingPlan{
		Label:         "Extra Adult",
		Type:          wallet.PlanTypeAddon,
		Price:         decimal.NewFromInt(100),
		DurationHours: decimal.Zero,
		Active:        false,
	})
	if err != nil {
		test.Fatalf("save addon: %v", err)
	}

	active, err := store.ListActivePricing(ctx)
	if err != nil {
		test.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].PlanID != plan.PlanID {
		test.Fatalf("expected only the active plan, got %+v", active)
	}
	if active[0].IncludedAdults != 1 {
		test.Fatalf("expected 1 included adult, got %d", active[0].IncludedAdults)
	}

	addon.Active = true
	if _, err := store.SavePricingPlan(ctx, addon); err != nil {
		test.Fatalf("update addon: %v", err)
	}
	active, err = store.ListActivePricing(ctx)
	if err != nil {
		test.Fatalf("list active: %v", err)
	}
	if len(active) != 2 || !active[0].Price.Equal(decimal.NewFromInt(100)) {
		test.Fatalf("expected both plans ordered by price, got %+v", active)
	}

	if err := store.DeletePricingPlan(ctx, addon.PlanID); err != nil {
		test.Fatalf("delete addon: %v", err)
	}
	if err := store.DeletePricingPlan(ctx, addon.PlanID); !errors.Is(err, wallet.ErrPlanNotFound) {
		test.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
	if _, err := store.SavePricingPlan(ctx, wallet.PricingPlan{
		PlanID: addon.PlanID,
		Label:  "Gone",
		Type:   wallet.PlanTypeAddon,
		Price:  decimal.NewFromInt(50),
	}); !errors.Is(err, wallet.ErrPlanNotFound) {
		test.Fatalf("expected ErrPlanNotFound on update, got %v", err)
	}
}

func TestWithTxRollsBackOnError(test *testing.T) {
	test.Parallel()
	store := openTestStore(test)
	ctx := context.Background()
	sentinel := errors.New("boom")

	err := store.WithTx(ctx, func(ctx context.Context, txStore wallet.Store) error {
		if _, err := txStore.CreateCustomer(ctx, wallet.Customer{
			Name:           "Rolled Back",
			Mobile:         "9000000034",
			Birthdate:      time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
			CurrentBalance: decimal.Zero,
			QRToken:        wallet.GenerateQRToken().String(),
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		test.Fatalf("expected sentinel, got %v", err)
	}
	customers, err := store.ListCustomers(ctx, wallet.CustomerFilter{})
	if err != nil {
		test.Fatalf("list: %v", err)
	}
	if len(customers) != 0 {
		test.Fatalf("expected empty table after rollback, got %d", len(customers))
	}
}
