package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Service contains the ledger logic over a Store. Every state-changing
// operation runs inside one Store.WithTx transaction so the balance
// update and its ledger rows commit or roll back together.
type Service struct {
	store   Store
	nowFn   func() time.Time
	loggers []OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// RegisterCustomer creates a customer, applying any active offer that
// matches the opening balance exactly. When money is put down, a
// RECHARGE row (and a BONUS row for the offer) is written in the same
// transaction as the customer itself.
func (service *Service) RegisterCustomer(ctx context.Context, input RegistrationInput) (RegistrationReceipt, error) {
	var receipt RegistrationReceipt
	operationError := func() error {
		if err := input.Validate(); err != nil {
			return err
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			bonus, err := service.matchBonus(ctx, transactionStore, input.InitialBalance.Decimal())
			if err != nil {
				return err
			}
			now := service.nowFn()
			created, err := transactionStore.CreateCustomer(ctx, Customer{
				Name:           strings.TrimSpace(input.Name),
				Mobile:         input.Mobile.String(),
				Birthdate:      input.Birthdate,
				CurrentBalance: input.InitialBalance.Decimal().Add(bonus),
				QRToken:        GenerateQRToken().String(),
				CreatedAt:      now,
			})
			if err != nil {
				return err
			}
			if input.InitialBalance.IsPositive() {
				if err := service.insertRechargeRows(ctx, transactionStore, created.CustomerID, input.AdminID, input.InitialBalance.Decimal(), bonus, input.PaymentMode, now); err != nil {
					return err
				}
			}
			receipt = RegistrationReceipt{Customer: created, Bonus: bonus}
			return nil
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:  operationRegister,
		CustomerID: receipt.Customer.CustomerID,
		Amount:     input.InitialBalance.Decimal(),
		Bonus:      receipt.Bonus,
		Error:      operationError,
	})
	if operationError != nil {
		return RegistrationReceipt{}, operationError
	}
	return receipt, nil
}

// Recharge credits a wallet by amount plus any exact-match offer bonus
// and appends the matching ledger rows atomically.
func (service *Service) Recharge(ctx context.Context, customerID int64, amount Amount, mode PaymentMode, adminID int64) (RechargeReceipt, error) {
	var receipt RechargeReceipt
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		customer, err := transactionStore.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		bonus, err := service.matchBonus(ctx, transactionStore, amount.Decimal())
		if err != nil {
			return err
		}
		newBalance, err := transactionStore.CreditBalance(ctx, customerID, amount.Decimal().Add(bonus))
		if err != nil {
			return err
		}
		now := service.nowFn()
		if err := service.insertRechargeRows(ctx, transactionStore, customerID, adminID, amount.Decimal(), bonus, mode, now); err != nil {
			return err
		}
		customer.CurrentBalance = newBalance
		receipt = RechargeReceipt{
			Customer:   customer,
			Amount:     amount.Decimal(),
			Bonus:      bonus,
			NewBalance: newBalance,
			Message:    rechargeMessage(amount.Decimal(), bonus),
		}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationRecharge,
		CustomerID: customerID,
		Amount:     amount.Decimal(),
		Bonus:      receipt.Bonus,
		Error:      operationError,
	})
	if operationError != nil {
		return RechargeReceipt{}, operationError
	}
	return receipt, nil
}

// StartSession opens a timed visit for the customer behind a QR token.
// The sufficiency check is a conditional debit inside the transaction,
// so a concurrent start can never overdraw the wallet, and the
// one-open-session rule is re-checked under the same transaction.
func (service *Service) StartSession(ctx context.Context, input StartSessionInput) (Session, Customer, error) {
	var session Session
	var customer Customer
	operationError := func() error {
		if err := input.Validate(); err != nil {
			return err
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			found, err := transactionStore.GetCustomerByQRToken(ctx, input.QRToken.String())
			if err != nil {
				return err
			}
			open, err := transactionStore.HasOpenSession(ctx, found.CustomerID)
			if err != nil {
				return err
			}
			if open {
				return ErrSessionActive
			}
			newBalance, err := transactionStore.DebitBalanceIfSufficient(ctx, found.CustomerID, input.DiscountedCost)
			if err != nil {
				return err
			}
			startedAt := service.nowFn()
			created, err := transactionStore.CreateSession(ctx, Session{
				CustomerID:         found.CustomerID,
				Adults:             input.Adults,
				Children:           input.Children,
				DurationHours:      input.DurationHours,
				ActualCost:         input.ActualCost,
				DiscountedCost:     input.DiscountedCost,
				DiscountPercentage: input.DiscountPercentage,
				DiscountReason:     input.DiscountReason,
				StartedAt:          startedAt,
				ExpectedEndAt:      startedAt.Add(durationFromHours(input.DurationHours)),
				Status:             StatusActive,
			})
			if err != nil {
				return err
			}
			adminID := input.AdminID
			if _, err := transactionStore.InsertTransaction(ctx, Transaction{
				CustomerID:  found.CustomerID,
				AdminID:     &adminID,
				Kind:        KindSessionDeduct,
				Amount:      input.DiscountedCost,
				PaymentMode: PaymentModeWallet,
				RecordedAt:  startedAt,
			}); err != nil {
				return err
			}
			found.CurrentBalance = newBalance
			session = created
			customer = found
			return nil
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:  operationSessionStart,
		CustomerID: customer.CustomerID,
		SessionID:  session.SessionID,
		Amount:     input.DiscountedCost,
		Error:      operationError,
	})
	if operationError != nil {
		return Session{}, Customer{}, operationError
	}
	return session, customer, nil
}

// ExitSession completes an open session. The transition is a status
// compare-and-swap, so a second exit fails instead of overwriting the
// recorded end time. The wallet is untouched: the cost was deducted at
// start.
func (service *Service) ExitSession(ctx context.Context, sessionID int64) (Session, Customer, error) {
	var session Session
	var customer Customer
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		found, err := transactionStore.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !found.Status.IsOpen() {
			return ErrSessionClosed
		}
		endedAt := service.nowFn()
		affected, err := transactionStore.CloseSession(ctx, sessionID, endedAt)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrSessionClosed
		}
		updated, err := transactionStore.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		owner, err := transactionStore.GetCustomer(ctx, updated.CustomerID)
		if err != nil {
			return err
		}
		session = updated
		customer = owner
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationSessionExit,
		CustomerID: customer.CustomerID,
		SessionID:  sessionID,
		Error:      operationError,
	})
	if operationError != nil {
		return Session{}, Customer{}, operationError
	}
	return session, customer, nil
}

// SweepOverdue flips every ACTIVE session past its expected end to
// OVERDUE. The sweep is idempotent and runs lazily from the dashboard
// and session list reads.
func (service *Service) SweepOverdue(ctx context.Context) (int64, error) {
	flipped, operationError := service.store.MarkOverdueSessions(ctx, service.nowFn())
	if flipped > 0 || operationError != nil {
		service.logOperation(ctx, OperationLog{
			Operation: operationSweepOverdue,
			Count:     flipped,
			Error:     operationError,
		})
	}
	return flipped, operationError
}

// Dashboard sweeps overdue sessions, then returns counts, the calendar
// month's recharge revenue, and the active/overdue session lists.
func (service *Service) Dashboard(ctx context.Context) (DashboardReport, error) {
	if _, err := service.SweepOverdue(ctx); err != nil {
		return DashboardReport{}, err
	}
	activeCount, err := service.store.CountSessionsByStatus(ctx, StatusActive)
	if err != nil {
		return DashboardReport{}, err
	}
	overdueCount, err := service.store.CountSessionsByStatus(ctx, StatusOverdue)
	if err != nil {
		return DashboardReport{}, err
	}
	now := service.nowFn()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	revenue, err := service.store.SumRechargesSince(ctx, firstOfMonth)
	if err != nil {
		return DashboardReport{}, err
	}
	activeList, err := service.store.ListSessionsByStatus(ctx, StatusActive)
	if err != nil {
		return DashboardReport{}, err
	}
	overdueList, err := service.store.ListSessionsByStatus(ctx, StatusOverdue)
	if err != nil {
		return DashboardReport{}, err
	}
	return DashboardReport{
		ActiveSessions:  activeCount,
		OverdueSessions: overdueCount,
		MonthlyRevenue:  revenue,
		ActiveList:      activeList,
		OverdueList:     overdueList,
	}, nil
}

// matchBonus resolves the bonus for an exact-amount active offer. A
// missing offer means no bonus, not an error.
func (service *Service) matchBonus(ctx context.Context, store Store, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}
	offer, err := store.FindActiveOffer(ctx, amount)
	if errors.Is(err, ErrOfferNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return offer.BonusAmount, nil
}

// insertRechargeRows appends the RECHARGE row and, when a bonus
// applied, the paired BONUS row. Both land in the caller's transaction
// so they commit together or not at all.
func (service *Service) insertRechargeRows(ctx context.Context, store Store, customerID int64, adminID int64, amount decimal.Decimal, bonus decimal.Decimal, mode PaymentMode, recordedAt time.Time) error {
	if mode == PaymentModeNone {
		mode = PaymentModeCash
	}
	adminRef := adminID
	if _, err := store.InsertTransaction(ctx, Transaction{
		CustomerID:  customerID,
		AdminID:     &adminRef,
		Kind:        KindRecharge,
		Amount:      amount,
		PaymentMode: mode,
		RecordedAt:  recordedAt,
	}); err != nil {
		return err
	}
	if !bonus.IsPositive() {
		return nil
	}
	_, err := store.InsertTransaction(ctx, Transaction{
		CustomerID:  customerID,
		AdminID:     &adminRef,
		Kind:        KindBonus,
		Amount:      bonus,
		PaymentMode: PaymentModeSystem,
		RecordedAt:  recordedAt,
	})
	return err
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if len(service.loggers) == 0 {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	for _, logger := range service.loggers {
		logger.LogOperation(ctx, entry)
	}
}

func rechargeMessage(amount decimal.Decimal, bonus decimal.Decimal) string {
	if bonus.IsPositive() {
		return fmt.Sprintf("Recharged %s + %s bonus applied", amount.String(), bonus.String())
	}
	return fmt.Sprintf("Recharged %s successfully", amount.String())
}

func durationFromHours(hours decimal.Decimal) time.Duration {
	return time.Duration(hours.Mul(decimal.NewFromInt(int64(time.Hour))).IntPart())
}
