package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerModel mirrors the customers table. Balances use a numeric
// column so sqlite and postgres both compare and add them as numbers.
type CustomerModel struct {
	CustomerID     int64           `gorm:"primaryKey;autoIncrement"`
	Name           string          `gorm:"not null"`
	Mobile         string          `gorm:"not null;index:uniq_customers_mobile,unique"`
	Birthdate      time.Time       `gorm:"not null"`
	CurrentBalance decimal.Decimal `gorm:"type:numeric;not null"`
	QRToken        string          `gorm:"not null;index:uniq_customers_qr_token,unique"`
	CreatedAt      time.Time       `gorm:"not null"`
}

func (CustomerModel) TableName() string { return "customers" }

// TransactionModel mirrors the wallet_transactions table. Rows are
// append-only; nothing updates or deletes a single ledger row.
type TransactionModel struct {
	TransactionID int64           `gorm:"primaryKey;autoIncrement"`
	CustomerID    int64           `gorm:"not null;index:idx_transactions_customer_recorded,priority:1"`
	AdminID       *int64          `gorm:""`
	Kind          string          `gorm:"not null;index"`
	Amount        decimal.Decimal `gorm:"type:numeric;not null"`
	PaymentMode   string          `gorm:"not null"`
	RecordedAt    time.Time       `gorm:"not null;index:idx_transactions_customer_recorded,priority:2"`
}

func (TransactionModel) TableName() string { return "wallet_transactions" }

// SessionModel mirrors the sessions table. The partial unique index
// enforces the one-open-session rule at the database even when two
// starts race past the in-transaction check.
type SessionModel struct {
	SessionID          int64           `gorm:"primaryKey;autoIncrement"`
	CustomerID         int64           `gorm:"not null;index:uniq_sessions_open_customer,unique,where:status = 'ACTIVE' OR status = 'OVERDUE'"`
	Adults             int             `gorm:"not null"`
	Children           int             `gorm:"not null"`
	DurationHours      decimal.Decimal `gorm:"type:numeric;not null"`
	ActualCost         decimal.Decimal `gorm:"type:numeric;not null"`
	DiscountedCost     decimal.Decimal `gorm:"type:numeric;not null"`
	DiscountPercentage decimal.Decimal `gorm:"type:numeric;not null"`
	DiscountReason     string          `gorm:""`
	StartedAt          time.Time       `gorm:"not null;index"`
	ExpectedEndAt      time.Time       `gorm:"not null;index"`
	EndedAt            *time.Time      `gorm:""`
	Status             string          `gorm:"not null;index"`
}

func (SessionModel) TableName() string { return "sessions" }

// OfferModel mirrors the recharge_offers table.
type OfferModel struct {
	OfferID       int64           `gorm:"primaryKey;autoIncrement"`
	TriggerAmount decimal.Decimal `gorm:"type:numeric;not null;index"`
	BonusAmount   decimal.Decimal `gorm:"type:numeric;not null"`
	Description   string          `gorm:""`
	Active        bool            `gorm:"not null"`
}

func (OfferModel) TableName() string { return "recharge_offers" }

// PricingPlanModel mirrors the pricing_plans table.
type PricingPlanModel struct {
	PlanID         int64           `gorm:"primaryKey;autoIncrement"`
	Label          string          `gorm:"not null"`
	Type           string          `gorm:"not null"`
	Price          decimal.Decimal `gorm:"type:numeric;not null"`
	DurationHours  decimal.Decimal `gorm:"type:numeric;not null"`
	IncludedAdults int             `gorm:"not null"`
	Active         bool            `gorm:"not null"`
}

func (PricingPlanModel) TableName() string { return "pricing_plans" }

// AdminModel mirrors the admins table.
type AdminModel struct {
	AdminID      int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"not null;index:uniq_admins_username,unique"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (AdminModel) TableName() string { return "admins" }

// AutoMigrate creates or updates every table the store depends on.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&CustomerModel{},
		&TransactionModel{},
		&SessionModel{},
		&OfferModel{},
		&PricingPlanModel{},
		&AdminModel{},
	)
}
