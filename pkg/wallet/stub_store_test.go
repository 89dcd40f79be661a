package wallet

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// stubStore is an in-memory Store. WithTx snapshots the state and
// restores it when the closure fails, mirroring a database rollback.
type stubStore struct {
	customers    map[int64]Customer
	sessions     map[int64]Session
	transactions []Transaction
	offers       []RechargeOffer
	plans        []PricingPlan
	admins       map[int64]Admin
	nextID       int64
}

func newStubStore() *stubStore {
	return &stubStore{
		customers: map[int64]Customer{},
		sessions:  map[int64]Session{},
		admins:    map[int64]Admin{},
	}
}

func (store *stubStore) nextIdentifier() int64 {
	store.nextID++
	return store.nextID
}

func (store *stubStore) snapshot() *stubStore {
	clone := newStubStore()
	clone.nextID = store.nextID
	for id, customer := range store.customers {
		clone.customers[id] = customer
	}
	for id, session := range store.sessions {
		clone.sessions[id] = session
	}
	for id, admin := range store.admins {
		clone.admins[id] = admin
	}
	clone.transactions = append(clone.transactions, store.transactions...)
	clone.offers = append(clone.offers, store.offers...)
	clone.plans = append(clone.plans, store.plans...)
	return clone
}

func (store *stubStore) restore(saved *stubStore) {
	store.customers = saved.customers
	store.sessions = saved.sessions
	store.admins = saved.admins
	store.transactions = saved.transactions
	store.offers = saved.offers
	store.plans = saved.plans
	store.nextID = saved.nextID
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	saved := store.snapshot()
	if err := fn(ctx, store); err != nil {
		store.restore(saved)
		return err
	}
	return nil
}

func (store *stubStore) CreateCustomer(_ context.Context, customer Customer) (Customer, error) {
	for _, existing := range store.customers {
		if existing.Mobile == customer.Mobile {
			return Customer{}, ErrMobileTaken
		}
	}
	customer.CustomerID = store.nextIdentifier()
	store.customers[customer.CustomerID] = customer
	return customer, nil
}

func (store *stubStore) GetCustomer(_ context.Context, customerID int64) (Customer, error) {
	customer, ok := store.customers[customerID]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	return customer, nil
}

func (store *stubStore) GetCustomerByQRToken(_ context.Context, token string) (Customer, error) {
	for _, customer := range store.customers {
		if customer.QRToken == token {
			return customer, nil
		}
	}
	return Customer{}, ErrCustomerNotFound
}

func (store *stubStore) UpdateCustomerProfile(_ context.Context, customerID int64, name string, mobile string, birthdate *time.Time) (Customer, error) {
	customer, ok := store.customers[customerID]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	for id, existing := range store.customers {
		if id != customerID && existing.Mobile == mobile {
			return Customer{}, ErrMobileTaken
		}
	}
	customer.Name = name
	customer.Mobile = mobile
	if birthdate != nil {
		customer.Birthdate = *birthdate
	}
	store.customers[customerID] = customer
	return customer, nil
}

func (store *stubStore) DeleteCustomerCascade(_ context.Context, customerID int64) error {
	if _, ok := store.customers[customerID]; !ok {
		return ErrCustomerNotFound
	}
	delete(store.customers, customerID)
	remaining := store.transactions[:0]
	for _, transaction := range store.transactions {
		if transaction.CustomerID != customerID {
			remaining = append(remaining, transaction)
		}
	}
	store.transactions = remaining
	for id, session := range store.sessions {
		if session.CustomerID == customerID {
			delete(store.sessions, id)
		}
	}
	return nil
}

func (store *stubStore) ListCustomers(_ context.Context, filter CustomerFilter) ([]Customer, error) {
	var listed []Customer
	for _, customer := range store.customers {
		if filter.Search != "" &&
			!strings.Contains(customer.Name, filter.Search) &&
			!strings.Contains(customer.Mobile, filter.Search) &&
			strconv.FormatInt(customer.CustomerID, 10) != filter.Search {
			continue
		}
		if len(filter.IDs) > 0 && !containsID(filter.IDs, customer.CustomerID) {
			continue
		}
		listed = append(listed, customer)
	}
	sort.Slice(listed, func(left, right int) bool {
		return listed[left].CreatedAt.After(listed[right].CreatedAt)
	})
	return listed, nil
}

func (store *stubStore) ListBirthdayCustomers(_ context.Context, month time.Month, search string, offset int, limit int) ([]Customer, int64, error) {
	var matched []Customer
	for _, customer := range store.customers {
		if customer.Birthdate.Month() != month {
			continue
		}
		if search != "" && !strings.Contains(customer.Name, search) && !strings.Contains(customer.Mobile, search) {
			continue
		}
		matched = append(matched, customer)
	}
	sort.Slice(matched, func(left, right int) bool {
		return matched[left].Birthdate.Day() < matched[right].Birthdate.Day()
	})
	total := int64(len(matched))
	matched = page(matched, offset, limit)
	return matched, total, nil
}

func (store *stubStore) CreditBalance(_ context.Context, customerID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	customer, ok := store.customers[customerID]
	if !ok {
		return decimal.Zero, ErrCustomerNotFound
	}
	customer.CurrentBalance = customer.CurrentBalance.Add(amount)
	store.customers[customerID] = customer
	return customer.CurrentBalance, nil
}

func (store *stubStore) DebitBalanceIfSufficient(_ context.Context, customerID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	customer, ok := store.customers[customerID]
	if !ok {
		return decimal.Zero, ErrCustomerNotFound
	}
	if customer.CurrentBalance.LessThan(amount) {
		return decimal.Zero, ErrInsufficientBalance
	}
	customer.CurrentBalance = customer.CurrentBalance.Sub(amount)
	store.customers[customerID] = customer
	return customer.CurrentBalance, nil
}

func (store *stubStore) InsertTransaction(_ context.Context, transaction Transaction) (Transaction, error) {
	transaction.TransactionID = store.nextIdentifier()
	store.transactions = append(store.transactions, transaction)
	return transaction, nil
}

func (store *stubStore) ListTransactions(_ context.Context, filter TransactionFilter) ([]TransactionRecord, int64, error) {
	var matched []TransactionRecord
	for _, transaction := range store.transactions {
		if !store.transactionMatches(transaction, filter) {
			continue
		}
		record := TransactionRecord{Transaction: transaction}
		if customer, ok := store.customers[transaction.CustomerID]; ok {
			record.CustomerName = customer.Name
			record.CustomerMobile = customer.Mobile
		}
		matched = append(matched, record)
	}
	sort.Slice(matched, func(left, right int) bool {
		return matched[left].RecordedAt.After(matched[right].RecordedAt)
	})
	total := int64(len(matched))
	matched = page(matched, filter.Offset, filter.Limit)
	return matched, total, nil
}

func (store *stubStore) transactionMatches(transaction Transaction, filter TransactionFilter) bool {
	if filter.CustomerID != 0 && transaction.CustomerID != filter.CustomerID {
		return false
	}
	if filter.From != nil && transaction.RecordedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && transaction.RecordedAt.After(*filter.To) {
		return false
	}
	if filter.Search != "" {
		customer := store.customers[transaction.CustomerID]
		if !strings.Contains(customer.Name, filter.Search) && !strings.Contains(customer.Mobile, filter.Search) {
			return false
		}
	}
	return true
}

func (store *stubStore) SumRechargesByMode(_ context.Context, filter TransactionFilter) (PaymentSums, error) {
	sums := PaymentSums{Cash: decimal.Zero, UPI: decimal.Zero, Card: decimal.Zero, Total: decimal.Zero}
	for _, transaction := range store.transactions {
		if transaction.Kind != KindRecharge || !store.transactionMatches(transaction, filter) {
			continue
		}
		switch transaction.PaymentMode {
		case PaymentModeCash:
			sums.Cash = sums.Cash.Add(transaction.Amount)
		case PaymentModeUPI:
			sums.UPI = sums.UPI.Add(transaction.Amount)
		case PaymentModeCard:
			sums.Card = sums.Card.Add(transaction.Amount)
		}
		sums.Total = sums.Total.Add(transaction.Amount)
	}
	return sums, nil
}

func (store *stubStore) SumRechargesSince(_ context.Context, since time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, transaction := range store.transactions {
		if transaction.Kind == KindRecharge && !transaction.RecordedAt.Before(since) {
			total = total.Add(transaction.Amount)
		}
	}
	return total, nil
}

func (store *stubStore) FindActiveOffer(_ context.Context, triggerAmount decimal.Decimal) (RechargeOffer, error) {
	sorted := append([]RechargeOffer(nil), store.offers...)
	sort.Slice(sorted, func(left, right int) bool {
		return sorted[left].OfferID < sorted[right].OfferID
	})
	for _, offer := range sorted {
		if offer.Active && offer.TriggerAmount.Equal(triggerAmount) {
			return offer, nil
		}
	}
	return RechargeOffer{}, ErrOfferNotFound
}

func (store *stubStore) ListOffers(_ context.Context) ([]RechargeOffer, error) {
	listed := append([]RechargeOffer(nil), store.offers...)
	sort.Slice(listed, func(left, right int) bool {
		return listed[left].TriggerAmount.LessThan(listed[right].TriggerAmount)
	})
	return listed, nil
}

func (store *stubStore) SaveOffer(_ context.Context, offer RechargeOffer) (RechargeOffer, error) {
	if offer.OfferID == 0 {
		offer.OfferID = store.nextIdentifier()
		store.offers = append(store.offers, offer)
		return offer, nil
	}
	for index, existing := range store.offers {
		if existing.OfferID == offer.OfferID {
			store.offers[index] = offer
			return offer, nil
		}
	}
	return RechargeOffer{}, ErrOfferNotFound
}

func (store *stubStore) DeleteOffer(_ context.Context, offerID int64) error {
	for index, existing := range store.offers {
		if existing.OfferID == offerID {
			store.offers = append(store.offers[:index], store.offers[index+1:]...)
			return nil
		}
	}
	return ErrOfferNotFound
}

func (store *stubStore) CreateSession(_ context.Context, session Session) (Session, error) {
	for _, existing := range store.sessions {
		if existing.CustomerID == session.CustomerID && existing.Status.IsOpen() {
			return Session{}, ErrSessionActive
		}
	}
	session.SessionID = store.nextIdentifier()
	store.sessions[session.SessionID] = session
	return session, nil
}

func (store *stubStore) GetSession(_ context.Context, sessionID int64) (Session, error) {
	session, ok := store.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (store *stubStore) HasOpenSession(_ context.Context, customerID int64) (bool, error) {
	for _, session := range store.sessions {
		if session.CustomerID == customerID && session.Status.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (store *stubStore) CloseSession(_ context.Context, sessionID int64, endedAt time.Time) (int64, error) {
	session, ok := store.sessions[sessionID]
	if !ok || !session.Status.IsOpen() {
		return 0, nil
	}
	session.Status = StatusCompleted
	session.EndedAt = &endedAt
	store.sessions[sessionID] = session
	return 1, nil
}

func (store *stubStore) MarkOverdueSessions(_ context.Context, now time.Time) (int64, error) {
	var flipped int64
	for id, session := range store.sessions {
		if session.Status == StatusActive && session.ExpectedEndAt.Before(now) {
			session.Status = StatusOverdue
			store.sessions[id] = session
			flipped++
		}
	}
	return flipped, nil
}

func (store *stubStore) CountSessionsByStatus(_ context.Context, status SessionStatus) (int64, error) {
	var count int64
	for _, session := range store.sessions {
		if session.Status == status {
			count++
		}
	}
	return count, nil
}

func (store *stubStore) ListSessionsByStatus(_ context.Context, status SessionStatus) ([]SessionRecord, error) {
	var listed []SessionRecord
	for _, session := range store.sessions {
		if session.Status != status {
			continue
		}
		listed = append(listed, store.sessionRecord(session))
	}
	sort.Slice(listed, func(left, right int) bool {
		if status == StatusOverdue {
			return listed[left].ExpectedEndAt.Before(listed[right].ExpectedEndAt)
		}
		return listed[left].StartedAt.After(listed[right].StartedAt)
	})
	return listed, nil
}

func (store *stubStore) ListSessions(_ context.Context, offset int, limit int) ([]SessionRecord, int64, error) {
	var listed []SessionRecord
	for _, session := range store.sessions {
		listed = append(listed, store.sessionRecord(session))
	}
	sort.Slice(listed, func(left, right int) bool {
		return listed[left].StartedAt.After(listed[right].StartedAt)
	})
	total := int64(len(listed))
	listed = page(listed, offset, limit)
	return listed, total, nil
}

func (store *stubStore) sessionRecord(session Session) SessionRecord {
	record := SessionRecord{Session: session}
	if customer, ok := store.customers[session.CustomerID]; ok {
		record.CustomerName = customer.Name
		record.CustomerMobile = customer.Mobile
	}
	return record
}

func (store *stubStore) ListActivePricing(_ context.Context) ([]PricingPlan, error) {
	var listed []PricingPlan
	for _, plan := range store.plans {
		if plan.Active {
			listed = append(listed, plan)
		}
	}
	sort.Slice(listed, func(left, right int) bool {
		return listed[left].Price.LessThan(listed[right].Price)
	})
	return listed, nil
}

func (store *stubStore) SavePricingPlan(_ context.Context, plan PricingPlan) (PricingPlan, error) {
	if plan.PlanID == 0 {
		plan.PlanID = store.nextIdentifier()
		store.plans = append(store.plans, plan)
		return plan, nil
	}
	for index, existing := range store.plans {
		if existing.PlanID == plan.PlanID {
			store.plans[index] = plan
			return plan, nil
		}
	}
	return PricingPlan{}, ErrPlanNotFound
}

func (store *stubStore) DeletePricingPlan(_ context.Context, planID int64) error {
	for index, existing := range store.plans {
		if existing.PlanID == planID {
			store.plans = append(store.plans[:index], store.plans[index+1:]...)
			return nil
		}
	}
	return ErrPlanNotFound
}

func (store *stubStore) GetAdminByUsername(_ context.Context, username string) (Admin, error) {
	for _, admin := range store.admins {
		if admin.Username == username {
			return admin, nil
		}
	}
	return Admin{}, ErrAdminNotFound
}

func (store *stubStore) CreateAdmin(_ context.Context, admin Admin) (Admin, error) {
	for _, existing := range store.admins {
		if existing.Username == admin.Username {
			return Admin{}, ErrUsernameTaken
		}
	}
	admin.AdminID = store.nextIdentifier()
	store.admins[admin.AdminID] = admin
	return admin, nil
}

func (store *stubStore) ListAdmins(_ context.Context) ([]Admin, error) {
	var listed []Admin
	for _, admin := range store.admins {
		listed = append(listed, admin)
	}
	sort.Slice(listed, func(left, right int) bool {
		return listed[left].AdminID < listed[right].AdminID
	})
	return listed, nil
}

func (store *stubStore) DeleteAdmin(_ context.Context, adminID int64) error {
	if _, ok := store.admins[adminID]; !ok {
		return ErrAdminNotFound
	}
	delete(store.admins, adminID)
	return nil
}

func (store *stubStore) CountAdmins(_ context.Context) (int64, error) {
	return int64(len(store.admins)), nil
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func page[Item any](items []Item, offset int, limit int) []Item {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Test helpers shared across the package's test files.

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, func() time.Time { return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) }, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func mustServiceAt(test *testing.T, store Store, now func() time.Time, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, now, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func mustAmount(test *testing.T, raw int64) Amount {
	test.Helper()
	amount, err := NewAmount(decimal.NewFromInt(raw))
	if err != nil {
		test.Fatalf("amount %d: %v", raw, err)
	}
	return amount
}

func mustStartingBalance(test *testing.T, raw int64) StartingBalance {
	test.Helper()
	balance, err := NewStartingBalance(decimal.NewFromInt(raw))
	if err != nil {
		test.Fatalf("starting balance %d: %v", raw, err)
	}
	return balance
}

func mustMobile(test *testing.T, raw string) MobileNumber {
	test.Helper()
	mobile, err := NewMobileNumber(raw)
	if err != nil {
		test.Fatalf("mobile %q: %v", raw, err)
	}
	return mobile
}

func seedCustomer(test *testing.T, store *stubStore, mobile string, balance int64) Customer {
	test.Helper()
	customer, err := store.CreateCustomer(context.Background(), Customer{
		Name:           "Seed Customer",
		Mobile:         mobile,
		Birthdate:      time.Date(1992, time.June, 14, 0, 0, 0, 0, time.UTC),
		CurrentBalance: decimal.NewFromInt(balance),
		QRToken:        GenerateQRToken().String(),
		CreatedAt:      time.Date(2025, time.January, 2, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		test.Fatalf("seed customer: %v", err)
	}
	return customer
}

func seedOffer(test *testing.T, store *stubStore, trigger int64, bonus int64, active bool) RechargeOffer {
	test.Helper()
	offer, err := store.SaveOffer(context.Background(), RechargeOffer{
		TriggerAmount: decimal.NewFromInt(trigger),
		BonusAmount:   decimal.NewFromInt(bonus),
		Description:   "seed offer",
		Active:        active,
	})
	if err != nil {
		test.Fatalf("seed offer: %v", err)
	}
	return offer
}
