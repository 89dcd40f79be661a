package gormstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/venueworks/playpass/pkg/wallet"
)

func (store *Store) CreditBalance(ctx context.Context, customerID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	result := store.db.WithContext(ctx).
		Model(&CustomerModel{}).
		Where("customer_id = ?", customerID).
		UpdateColumn("current_balance", gorm.Expr("current_balance + ?", amount))
	if result.Error != nil {
		return decimal.Zero, wrapStoreError(errorSubjectBalance, errorCodeCredit, result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, wrapStoreError(errorSubjectBalance, errorCodeCredit, wallet.ErrCustomerNotFound)
	}
	return store.currentBalance(ctx, customerID)
}

// DebitBalanceIfSufficient debits the wallet only when the balance
// covers the amount. The check and the write are one statement, so a
// concurrent debit can never push the balance negative.
func (store *Store) DebitBalanceIfSufficient(ctx context.Context, customerID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	result := store.db.WithContext(ctx).
		Model(&CustomerModel{}).
		Where("customer_id = ? AND current_balance >= ?", customerID, amount).
		UpdateColumn("current_balance", gorm.Expr("current_balance - ?", amount))
	if result.Error != nil {
		return decimal.Zero, wrapStoreError(errorSubjectBalance, errorCodeDebit, result.Error)
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := store.db.WithContext(ctx).Model(&CustomerModel{}).Where("customer_id = ?", customerID).Count(&exists).Error; err != nil {
			return decimal.Zero, wrapStoreError(errorSubjectBalance, errorCodeDebit, err)
		}
		if exists == 0 {
			return decimal.Zero, wrapStoreError(errorSubjectBalance, errorCodeDebit, wallet.ErrCustomerNotFound)
		}
		return decimal.Zero, wrapStoreError(errorSubjectBalance, errorCodeDebit, wallet.ErrInsufficientBalance)
	}
	return store.currentBalance(ctx, customerID)
}

func (store *Store) currentBalance(ctx context.Context, customerID int64) (decimal.Decimal, error) {
	var model CustomerModel
	err := store.db.WithContext(ctx).Select("current_balance").Where("customer_id = ?", customerID).Take(&model).Error
	if err != nil {
		return decimal.Zero, wrapStoreError(errorSubjectBalance, errorCodeGet, err)
	}
	return model.CurrentBalance, nil
}

func (store *Store) InsertTransaction(ctx context.Context, transaction wallet.Transaction) (wallet.Transaction, error) {
	model := TransactionModel{
		CustomerID:  transaction.CustomerID,
		AdminID:     transaction.AdminID,
		Kind:        transaction.Kind.String(),
		Amount:      transaction.Amount,
		PaymentMode: transaction.PaymentMode.String(),
		RecordedAt:  transaction.RecordedAt,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wallet.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInsert, err)
	}
	transaction.TransactionID = model.TransactionID
	return transaction, nil
}

// transactionRow carries a ledger row joined with the customer and
// admin identity columns staff screens display.
type transactionRow struct {
	TransactionID  int64
	CustomerID     int64
	AdminID        *int64
	Kind           string
	Amount         decimal.Decimal
	PaymentMode    string
	RecordedAt     time.Time
	CustomerName   string
	CustomerMobile string
	AdminUsername  *string
}

func (store *Store) transactionQuery(ctx context.Context, filter wallet.TransactionFilter) *gorm.DB {
	query := store.db.WithContext(ctx).Model(&TransactionModel{}).
		Joins("LEFT JOIN customers ON customers.customer_id = wallet_transactions.customer_id").
		Joins("LEFT JOIN admins ON admins.admin_id = wallet_transactions.admin_id")
	if filter.CustomerID != 0 {
		query = query.Where("wallet_transactions.customer_id = ?", filter.CustomerID)
	}
	if filter.From != nil {
		query = query.Where("wallet_transactions.recorded_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("wallet_transactions.recorded_at <= ?", *filter.To)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("customers.name LIKE ? OR customers.mobile LIKE ?", like, like)
	}
	return query
}

func (store *Store) ListTransactions(ctx context.Context, filter wallet.TransactionFilter) ([]wallet.TransactionRecord, int64, error) {
	var total int64
	if err := store.transactionQuery(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectTransaction, errorCodeCount, err)
	}
	query := store.transactionQuery(ctx, filter).
		Select("wallet_transactions.*, customers.name AS customer_name, customers.mobile AS customer_mobile, admins.username AS admin_username").
		Order("wallet_transactions.recorded_at DESC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []transactionRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	records := make([]wallet.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		record, err := mapTransactionRow(row)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	return records, total, nil
}

func mapTransactionRow(row transactionRow) (wallet.TransactionRecord, error) {
	kind, err := wallet.ParseTransactionKind(row.Kind)
	if err != nil {
		return wallet.TransactionRecord{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	mode, err := wallet.ParsePaymentMode(row.PaymentMode)
	if err != nil {
		return wallet.TransactionRecord{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	record := wallet.TransactionRecord{
		Transaction: wallet.Transaction{
			TransactionID: row.TransactionID,
			CustomerID:    row.CustomerID,
			AdminID:       row.AdminID,
			Kind:          kind,
			Amount:        row.Amount,
			PaymentMode:   mode,
			RecordedAt:    row.RecordedAt,
		},
		CustomerName:   row.CustomerName,
		CustomerMobile: row.CustomerMobile,
	}
	if row.AdminUsername != nil {
		record.AdminUsername = *row.AdminUsername
	}
	return record, nil
}

type paymentSumsRow struct {
	Cash  decimal.Decimal
	Upi   decimal.Decimal
	Card  decimal.Decimal
	Total decimal.Decimal
}

func (store *Store) SumRechargesByMode(ctx context.Context, filter wallet.TransactionFilter) (wallet.PaymentSums, error) {
	var row paymentSumsRow
	err := store.transactionQuery(ctx, filter).
		Where("wallet_transactions.kind = ?", wallet.KindRecharge.String()).
		Select(
			"COALESCE(SUM(CASE WHEN wallet_transactions.payment_mode = 'CASH' THEN wallet_transactions.amount ELSE 0 END), 0) AS cash, " +
				"COALESCE(SUM(CASE WHEN wallet_transactions.payment_mode = 'UPI' THEN wallet_transactions.amount ELSE 0 END), 0) AS upi, " +
				"COALESCE(SUM(CASE WHEN wallet_transactions.payment_mode = 'CARD' THEN wallet_transactions.amount ELSE 0 END), 0) AS card, " +
				"COALESCE(SUM(wallet_transactions.amount), 0) AS total").
		Scan(&row).Error
	if err != nil {
		return wallet.PaymentSums{}, wrapStoreError(errorSubjectTransaction, errorCodeSum, err)
	}
	return wallet.PaymentSums{Cash: row.Cash, UPI: row.Upi, Card: row.Card, Total: row.Total}, nil
}

func (store *Store) SumRechargesSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := store.db.WithContext(ctx).
		Model(&TransactionModel{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("kind = ? AND recorded_at >= ?", wallet.KindRecharge.String(), since).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, wrapStoreError(errorSubjectTransaction, errorCodeSum, err)
	}
	return row.Total, nil
}
