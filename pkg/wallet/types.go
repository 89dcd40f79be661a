package wallet

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind enumerates ledger row kinds.
type TransactionKind string

const (
	KindRecharge      TransactionKind = "RECHARGE"
	KindBonus         TransactionKind = "BONUS"
	KindSessionDeduct TransactionKind = "SESSION_DEDUCT"
)

// ParseTransactionKind validates a raw kind string.
func ParseTransactionKind(raw string) (TransactionKind, error) {
	switch TransactionKind(raw) {
	case KindRecharge, KindBonus, KindSessionDeduct:
		return TransactionKind(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
}

// String returns the stored representation.
func (kind TransactionKind) String() string {
	return string(kind)
}

// PaymentMode enumerates how money entered the wallet. Bonus rows carry
// PaymentModeSystem; session deductions carry PaymentModeWallet.
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeUPI    PaymentMode = "UPI"
	PaymentModeCard   PaymentMode = "CARD"
	PaymentModeWallet PaymentMode = "WALLET"
	PaymentModeSystem PaymentMode = "SYSTEM"
	PaymentModeNone   PaymentMode = ""
)

// ParsePaymentMode validates a raw payment mode. The empty string is a
// legal mode: system-generated rows may omit it.
func ParsePaymentMode(raw string) (PaymentMode, error) {
	switch PaymentMode(strings.ToUpper(strings.TrimSpace(raw))) {
	case PaymentModeCash, PaymentModeUPI, PaymentModeCard, PaymentModeWallet, PaymentModeSystem, PaymentModeNone:
		return PaymentMode(strings.ToUpper(strings.TrimSpace(raw))), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMode, raw)
}

// String returns the stored representation.
func (mode PaymentMode) String() string {
	return string(mode)
}

// SessionStatus defines the visit session lifecycle. Transitions run
// only forward: ACTIVE -> OVERDUE -> COMPLETED or ACTIVE -> COMPLETED.
type SessionStatus string

const (
	StatusActive    SessionStatus = "ACTIVE"
	StatusOverdue   SessionStatus = "OVERDUE"
	StatusCompleted SessionStatus = "COMPLETED"
)

// ParseSessionStatus validates a raw status string.
func ParseSessionStatus(raw string) (SessionStatus, error) {
	switch SessionStatus(raw) {
	case StatusActive, StatusOverdue, StatusCompleted:
		return SessionStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// String returns the stored representation.
func (status SessionStatus) String() string {
	return string(status)
}

// IsOpen reports whether a session still occupies the venue.
func (status SessionStatus) IsOpen() bool {
	return status == StatusActive || status == StatusOverdue
}

// AdminRole governs authorization for staff accounts.
type AdminRole string

const (
	RoleAdmin      AdminRole = "ADMIN"
	RoleSuperAdmin AdminRole = "SUPERADMIN"
)

// ParseAdminRole validates a raw role string.
func ParseAdminRole(raw string) (AdminRole, error) {
	switch AdminRole(raw) {
	case RoleAdmin, RoleSuperAdmin:
		return AdminRole(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// String returns the stored representation.
func (role AdminRole) String() string {
	return string(role)
}

// Amount is a validated, strictly positive money value.
type Amount struct {
	value decimal.Decimal
}

// NewAmount validates an amount and ensures it is strictly positive.
func NewAmount(raw decimal.Decimal) (Amount, error) {
	if !raw.IsPositive() {
		return Amount{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return Amount{value: raw}, nil
}

// Decimal returns the underlying value.
func (amount Amount) Decimal() decimal.Decimal {
	return amount.value
}

// StartingBalance is a validated, non-negative opening balance.
type StartingBalance struct {
	value decimal.Decimal
}

// NewStartingBalance validates an opening balance (zero is allowed).
func NewStartingBalance(raw decimal.Decimal) (StartingBalance, error) {
	if raw.IsNegative() {
		return StartingBalance{}, fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	return StartingBalance{value: raw}, nil
}

// Decimal returns the underlying value.
func (balance StartingBalance) Decimal() decimal.Decimal {
	return balance.value
}

// IsPositive reports whether any money was put down at registration.
func (balance StartingBalance) IsPositive() bool {
	return balance.value.IsPositive()
}

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

// MobileNumber is a validated 10-digit subscriber number.
type MobileNumber struct {
	value string
}

// NewMobileNumber validates and normalizes a mobile number.
func NewMobileNumber(raw string) (MobileNumber, error) {
	trimmed := strings.TrimSpace(raw)
	if !mobilePattern.MatchString(trimmed) {
		return MobileNumber{}, fmt.Errorf("%w: must be 10 digits", ErrInvalidMobile)
	}
	return MobileNumber{value: trimmed}, nil
}

// String returns the normalized number.
func (mobile MobileNumber) String() string {
	return mobile.value
}

// QRToken is the opaque entry token printed on a customer's QR code.
type QRToken struct {
	value string
}

// NewQRToken validates and normalizes a QR token.
func NewQRToken(raw string) (QRToken, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return QRToken{}, fmt.Errorf("%w: empty value", ErrInvalidQRToken)
	}
	return QRToken{value: trimmed}, nil
}

// GenerateQRToken mints a fresh opaque token.
func GenerateQRToken() QRToken {
	return QRToken{value: uuid.NewString()}
}

// String returns the normalized token.
func (token QRToken) String() string {
	return token.value
}

// Customer is a registered venue member with a prepaid wallet.
type Customer struct {
	CustomerID     int64
	Name           string
	Mobile         string
	Birthdate      time.Time
	CurrentBalance decimal.Decimal
	QRToken        string
	CreatedAt      time.Time
}

// Transaction is one immutable wallet ledger row.
type Transaction struct {
	TransactionID int64
	CustomerID    int64
	AdminID       *int64
	Kind          TransactionKind
	Amount        decimal.Decimal
	PaymentMode   PaymentMode
	RecordedAt    time.Time
}

// Session is one customer's timed visit.
type Session struct {
	SessionID          int64
	CustomerID         int64
	Adults             int
	Children           int
	DurationHours      decimal.Decimal
	ActualCost         decimal.Decimal
	DiscountedCost     decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountReason     string
	StartedAt          time.Time
	ExpectedEndAt      time.Time
	EndedAt            *time.Time
	Status             SessionStatus
}

// RechargeOffer is a bonus rule triggered by an exact recharge amount.
type RechargeOffer struct {
	OfferID       int64
	TriggerAmount decimal.Decimal
	BonusAmount   decimal.Decimal
	Description   string
	Active        bool
}

// PlanType separates base entry plans from add-ons.
type PlanType string

const (
	PlanTypePlan  PlanType = "PLAN"
	PlanTypeAddon PlanType = "ADDON"
)

// ParsePlanType validates a raw plan type string.
func ParsePlanType(raw string) (PlanType, error) {
	switch PlanType(raw) {
	case PlanTypePlan, PlanTypeAddon:
		return PlanType(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlanType, raw)
}

// String returns the stored representation.
func (planType PlanType) String() string {
	return string(planType)
}

// PricingPlan is a price entry shown to staff at session start.
// IncludedAdults is how many accompanying adults the price covers.
type PricingPlan struct {
	PlanID         int64
	Label          string
	Type           PlanType
	Price          decimal.Decimal
	DurationHours  decimal.Decimal
	IncludedAdults int
	Active         bool
}

// Admin is a staff account.
type Admin struct {
	AdminID      int64
	Username     string
	PasswordHash string
	Role         AdminRole
	CreatedAt    time.Time
}

// RegistrationInput carries a validated customer registration request.
type RegistrationInput struct {
	Name           string
	Mobile         MobileNumber
	Birthdate      time.Time
	InitialBalance StartingBalance
	PaymentMode    PaymentMode
	AdminID        int64
}

// Validate checks the fields the newtypes do not already cover.
func (input RegistrationInput) Validate() error {
	if len(strings.TrimSpace(input.Name)) < 2 {
		return fmt.Errorf("%w: name too short", ErrInvalidName)
	}
	if input.Birthdate.IsZero() {
		return fmt.Errorf("%w: birthdate is required", ErrInvalidName)
	}
	return nil
}

// StartSessionInput carries a validated session start request. Costs
// arrive pre-computed from the staff client against the published
// pricing plans; the server does not recompute them.
type StartSessionInput struct {
	QRToken            QRToken
	Adults             int
	Children           int
	DurationHours      decimal.Decimal
	ActualCost         decimal.Decimal
	DiscountedCost     decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountReason     string
	AdminID            int64
}

var minimumDurationHours = decimal.NewFromFloat(0.5)

// Validate checks guest counts, duration, and discount shape.
func (input StartSessionInput) Validate() error {
	if input.Children < 1 {
		return fmt.Errorf("%w: at least one child required", ErrInvalidGuestCount)
	}
	if input.Adults < 0 {
		return fmt.Errorf("%w: adults must not be negative", ErrInvalidGuestCount)
	}
	if input.DurationHours.LessThan(minimumDurationHours) {
		return fmt.Errorf("%w: minimum duration is 30 minutes", ErrInvalidDuration)
	}
	if input.ActualCost.IsNegative() || input.DiscountedCost.IsNegative() {
		return fmt.Errorf("%w: costs must not be negative", ErrInvalidAmount)
	}
	if input.DiscountPercentage.IsNegative() || input.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: percentage must be within 0..100", ErrInvalidDiscount)
	}
	return nil
}

// RegistrationReceipt reports the outcome of a registration.
type RegistrationReceipt struct {
	Customer Customer
	Bonus    decimal.Decimal
}

// RechargeReceipt reports the outcome of a wallet recharge.
type RechargeReceipt struct {
	Customer   Customer
	Amount     decimal.Decimal
	Bonus      decimal.Decimal
	NewBalance decimal.Decimal
	Message    string
}

// SessionRecord joins a session with the customer identity shown in
// staff-facing lists.
type SessionRecord struct {
	Session
	CustomerName   string
	CustomerMobile string
}

// TransactionRecord joins a ledger row with customer and admin names.
type TransactionRecord struct {
	Transaction
	CustomerName   string
	CustomerMobile string
	AdminUsername  string
}

// PaymentSums aggregates recharge turnover per payment mode.
type PaymentSums struct {
	Cash  decimal.Decimal
	UPI   decimal.Decimal
	Card  decimal.Decimal
	Total decimal.Decimal
}

// DashboardReport is the operational snapshot served to the dashboard.
type DashboardReport struct {
	ActiveSessions  int64
	OverdueSessions int64
	MonthlyRevenue  decimal.Decimal
	ActiveList      []SessionRecord
	OverdueList     []SessionRecord
}

// CustomerFilter narrows customer listings.
type CustomerFilter struct {
	Search string
	IDs    []int64
}

// TransactionFilter narrows ledger listings. A zero CustomerID matches
// every customer; a non-positive Limit disables pagination.
type TransactionFilter struct {
	CustomerID int64
	From       *time.Time
	To         *time.Time
	Search     string
	Offset     int
	Limit      int
}

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	CreateCustomer(ctx context.Context, customer Customer) (Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (Customer, error)
	GetCustomerByQRToken(ctx context.Context, token string) (Customer, error)
	UpdateCustomerProfile(ctx context.Context, customerID int64, name string, mobile string, birthdate *time.Time) (Customer, error)
	DeleteCustomerCascade(ctx context.Context, customerID int64) error
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]Customer, error)
	ListBirthdayCustomers(ctx context.Context, month time.Month, search string, offset int, limit int) ([]Customer, int64, error)

	CreditBalance(ctx context.Context, customerID int64, amount decimal.Decimal) (decimal.Decimal, error)
	DebitBalanceIfSufficient(ctx context.Context, customerID int64, amount decimal.Decimal) (decimal.Decimal, error)

	InsertTransaction(ctx context.Context, transaction Transaction) (Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionRecord, int64, error)
	SumRechargesByMode(ctx context.Context, filter TransactionFilter) (PaymentSums, error)
	SumRechargesSince(ctx context.Context, since time.Time) (decimal.Decimal, error)

	FindActiveOffer(ctx context.Context, triggerAmount decimal.Decimal) (RechargeOffer, error)
	ListOffers(ctx context.Context) ([]RechargeOffer, error)
	SaveOffer(ctx context.Context, offer RechargeOffer) (RechargeOffer, error)
	DeleteOffer(ctx context.Context, offerID int64) error

	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, sessionID int64) (Session, error)
	HasOpenSession(ctx context.Context, customerID int64) (bool, error)
	CloseSession(ctx context.Context, sessionID int64, endedAt time.Time) (int64, error)
	MarkOverdueSessions(ctx context.Context, now time.Time) (int64, error)
	CountSessionsByStatus(ctx context.Context, status SessionStatus) (int64, error)
	ListSessionsByStatus(ctx context.Context, status SessionStatus) ([]SessionRecord, error)
	ListSessions(ctx context.Context, offset int, limit int) ([]SessionRecord, int64, error)

	ListActivePricing(ctx context.Context) ([]PricingPlan, error)
	SavePricingPlan(ctx context.Context, plan PricingPlan) (PricingPlan, error)
	DeletePricingPlan(ctx context.Context, planID int64) error

	GetAdminByUsername(ctx context.Context, username string) (Admin, error)
	CreateAdmin(ctx context.Context, admin Admin) (Admin, error)
	ListAdmins(ctx context.Context) ([]Admin, error)
	DeleteAdmin(ctx context.Context, adminID int64) error
	CountAdmins(ctx context.Context) (int64, error)
}
