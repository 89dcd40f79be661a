package wallet

import (
	"context"
	"time"
)

// Customers lists customers matching the staff search box.
func (service *Service) Customers(ctx context.Context, filter CustomerFilter) ([]Customer, error) {
	return service.store.ListCustomers(ctx, filter)
}

// Customer fetches one customer by id.
func (service *Service) Customer(ctx context.Context, customerID int64) (Customer, error) {
	return service.store.GetCustomer(ctx, customerID)
}

// CustomerByQRToken resolves a customer from a scanned entry token.
func (service *Service) CustomerByQRToken(ctx context.Context, token QRToken) (Customer, error) {
	return service.store.GetCustomerByQRToken(ctx, token.String())
}

// UpdateCustomer edits the profile fields; the balance is only ever
// touched by ledger operations.
func (service *Service) UpdateCustomer(ctx context.Context, customerID int64, name string, mobile MobileNumber, birthdate *time.Time) (Customer, error) {
	return service.store.UpdateCustomerProfile(ctx, customerID, name, mobile.String(), birthdate)
}

// DeleteCustomer removes a customer and its transaction/session history
// in one transaction.
func (service *Service) DeleteCustomer(ctx context.Context, customerID int64) error {
	return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		return transactionStore.DeleteCustomerCascade(ctx, customerID)
	})
}

// BirthdayCustomers pages customers born in the given month, ordered by
// day of month.
func (service *Service) BirthdayCustomers(ctx context.Context, month time.Month, search string, offset int, limit int) ([]Customer, int64, error) {
	return service.store.ListBirthdayCustomers(ctx, month, search, offset, limit)
}

// Transactions pages the ledger with the per-mode recharge sums the
// recharge history screen shows alongside it.
func (service *Service) Transactions(ctx context.Context, filter TransactionFilter) ([]TransactionRecord, int64, PaymentSums, error) {
	records, total, err := service.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, 0, PaymentSums{}, err
	}
	sums, err := service.store.SumRechargesByMode(ctx, filter)
	if err != nil {
		return nil, 0, PaymentSums{}, err
	}
	return records, total, sums, nil
}

// Sessions pages the session history, sweeping overdue sessions first
// so statuses are accurate at read time.
func (service *Service) Sessions(ctx context.Context, offset int, limit int) ([]SessionRecord, int64, error) {
	if _, err := service.SweepOverdue(ctx); err != nil {
		return nil, 0, err
	}
	return service.store.ListSessions(ctx, offset, limit)
}

// Offers lists every recharge offer, active or not.
func (service *Service) Offers(ctx context.Context) ([]RechargeOffer, error) {
	return service.store.ListOffers(ctx)
}

// SaveOffer creates the offer when its id is zero, updates it otherwise.
func (service *Service) SaveOffer(ctx context.Context, offer RechargeOffer) (RechargeOffer, error) {
	return service.store.SaveOffer(ctx, offer)
}

// DeleteOffer removes a recharge offer.
func (service *Service) DeleteOffer(ctx context.Context, offerID int64) error {
	return service.store.DeleteOffer(ctx, offerID)
}

// ActivePricing lists the active pricing plans shown at session start.
func (service *Service) ActivePricing(ctx context.Context) ([]PricingPlan, error) {
	return service.store.ListActivePricing(ctx)
}

// SavePricingPlan creates the plan when its id is zero, updates it
// otherwise.
func (service *Service) SavePricingPlan(ctx context.Context, plan PricingPlan) (PricingPlan, error) {
	return service.store.SavePricingPlan(ctx, plan)
}

// DeletePricingPlan removes a pricing plan.
func (service *Service) DeletePricingPlan(ctx context.Context, planID int64) error {
	return service.store.DeletePricingPlan(ctx, planID)
}
