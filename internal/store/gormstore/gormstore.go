package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/venueworks/playpass/pkg/wallet"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore     = "store"
	errorSubjectCustomer    = "customer"
	errorSubjectBalance     = "balance"
	errorSubjectTransaction = "transaction"
	errorSubjectSession     = "session"
	errorSubjectOffer       = "offer"
	errorSubjectPlan        = "plan"
	errorSubjectAdmin       = "admin"
	errorCodeCreate         = "create"
	errorCodeGet            = "get"
	errorCodeUpdate         = "update"
	errorCodeDelete         = "delete"
	errorCodeList           = "list"
	errorCodeCount          = "count"
	errorCodeSum            = "sum"
	errorCodeCredit         = "credit"
	errorCodeDebit          = "debit"
	errorCodeSweep          = "sweep"
	errorCodeClose          = "close"
	errorCodeDuplicate      = "duplicate"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
)

// Store implements wallet.Store using GORM over sqlite or postgres.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore wallet.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) CreateCustomer(ctx context.Context, customer wallet.Customer) (wallet.Customer, error) {
	model := CustomerModel{
		Name:           customer.Name,
		Mobile:         customer.Mobile,
		Birthdate:      customer.Birthdate,
		CurrentBalance: customer.CurrentBalance,
		QRToken:        customer.QRToken,
		CreatedAt:      customer.CreatedAt,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, "mobile") {
		return wallet.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeDuplicate, wallet.ErrMobileTaken)
	}
	if err != nil {
		return wallet.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeCreate, err)
	}
	return toCustomer(model), nil
}

func (store *Store) GetCustomer(ctx context.Context, customerID int64) (wallet.Customer, error) {
	var model CustomerModel
	err := store.db.WithContext(ctx).Where("customer_id = ?", customerID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeGet, wallet.ErrCustomerNotFound)
	}
	if err != nil {
		return wallet.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeGet, err)
	}
	return toCustomer(model), nil
}

func (store *Store) GetCustomerByQRToken(ctx context.Context, token string) (wallet.Customer, error) {
	var model CustomerModel
	err := store.db.WithContext(ctx).Where("qr_token = ?", token).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeGet, wallet.ErrCustomerNotFound)
	}
	if err != nil {
		return wallet.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeGet, err)
	}
	return toCustomer(model), nil
}

func (store *Store) UpdateCustomerProfile(ctx context.Context, customerID int64, name string, mobile string, birthdate *time.Time) (wallet.Customer, error) {
	updates := map[string]interface{}{
		"name":   name,
		"mobile": mobile,
	}
	if birthdate != nil {
		updates["birthdate"] = *birthdate
	}
	result := store.db.WithContext(ctx).
		Model(&CustomerModel{}).
		Where("customer_id = ?", customerID).
		Updates(updates)
	if isUniqueViolation(result.Error, "mobile") {
		return wallet.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeDuplicate, wallet.ErrMobileTaken)
	}
	if result.Error != nil {
		return wallet.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wallet.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeUpdate, wallet.ErrCustomerNotFound)
	}
	return store.GetCustomer(ctx, customerID)
}

func (store *Store) DeleteCustomerCascade(ctx context.Context, customerID int64) error {
	if err := store.db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&TransactionModel{}).Error; err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeDelete, err)
	}
	if err := store.db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&SessionModel{}).Error; err != nil {
		return wrapStoreError(errorSubjectSession, errorCodeDelete, err)
	}
	result := store.db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&CustomerModel{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectCustomer, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectCustomer, errorCodeDelete, wallet.ErrCustomerNotFound)
	}
	return nil
}

func (store *Store) ListCustomers(ctx context.Context, filter wallet.CustomerFilter) ([]wallet.Customer, error) {
	query := store.db.WithContext(ctx).Model(&CustomerModel{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		if id, err := strconv.ParseInt(filter.Search, 10, 64); err == nil {
			query = query.Where("name LIKE ? OR mobile LIKE ? OR customer_id = ?", like, like, id)
		} else {
			query = query.Where("name LIKE ? OR mobile LIKE ?", like, like)
		}
	}
	if len(filter.IDs) > 0 {
		query = query.Where("customer_id IN ?", filter.IDs)
	}
	var models []CustomerModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, wrapStoreError(errorSubjectCustomer, errorCodeList, err)
	}
	customers := make([]wallet.Customer, 0, len(models))
	for _, model := range models {
		customers = append(customers, toCustomer(model))
	}
	return customers, nil
}

func (store *Store) ListBirthdayCustomers(ctx context.Context, month time.Month, search string, offset int, limit int) ([]wallet.Customer, int64, error) {
	build := func() *gorm.DB {
		query := store.db.WithContext(ctx).Model(&CustomerModel{}).
			Where(fmt.Sprintf("%s = ?", store.monthExpression("birthdate")), int(month))
		if search != "" {
			like := "%" + search + "%"
			query = query.Where("name LIKE ? OR mobile LIKE ?", like, like)
		}
		return query
	}
	var total int64
	if err := build().Count(&total).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectCustomer, errorCodeCount, err)
	}
	query := build().Order(store.dayExpression("birthdate") + " ASC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []CustomerModel
	if err := query.Find(&models).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectCustomer, errorCodeList, err)
	}
	customers := make([]wallet.Customer, 0, len(models))
	for _, model := range models {
		customers = append(customers, toCustomer(model))
	}
	return customers, total, nil
}

func (store *Store) FindActiveOffer(ctx context.Context, triggerAmount decimal.Decimal) (wallet.RechargeOffer, error) {
	var model OfferModel
	err := store.db.WithContext(ctx).
		Where("active = ? AND trigger_amount = ?", true, triggerAmount).
		Order("offer_id ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.RechargeOffer{}, wrapStoreError(errorSubjectOffer, errorCodeGet, wallet.ErrOfferNotFound)
	}
	if err != nil {
		return wallet.RechargeOffer{}, wrapStoreError(errorSubjectOffer, errorCodeGet, err)
	}
	return toOffer(model), nil
}

func (store *Store) ListOffers(ctx context.Context) ([]wallet.RechargeOffer, error) {
	var models []OfferModel
	if err := store.db.WithContext(ctx).Order("trigger_amount ASC").Find(&models).Error; err != nil {
		return nil, wrapStoreError(errorSubjectOffer, errorCodeList, err)
	}
	offers := make([]wallet.RechargeOffer, 0, len(models))
	for _, model := range models {
		offers = append(offers, toOffer(model))
	}
	return offers, nil
}

func (store *Store) SaveOffer(ctx context.Context, offer wallet.RechargeOffer) (wallet.RechargeOffer, error) {
	model := OfferModel{
		OfferID:       offer.OfferID,
		TriggerAmount: offer.TriggerAmount,
		BonusAmount:   offer.BonusAmount,
		Description:   offer.Description,
		Active:        offer.Active,
	}
	if model.OfferID == 0 {
		if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
			return wallet.RechargeOffer{}, wrapStoreError(errorSubjectOffer, errorCodeCreate, err)
		}
		return toOffer(model), nil
	}
	result := store.db.WithContext(ctx).
		Model(&OfferModel{}).
		Where("offer_id = ?", model.OfferID).
		Updates(map[string]interface{}{
			"trigger_amount": model.TriggerAmount,
			"bonus_amount":   model.BonusAmount,
			"description":    model.Description,
			"active":         model.Active,
		})
	if result.Error != nil {
		return wallet.RechargeOffer{}, wrapStoreError(errorSubjectOffer, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wallet.RechargeOffer{}, wrapStoreError(errorSubjectOffer, errorCodeUpdate, wallet.ErrOfferNotFound)
	}
	return toOffer(model), nil
}

func (store *Store) DeleteOffer(ctx context.Context, offerID int64) error {
	result := store.db.WithContext(ctx).Where("offer_id = ?", offerID).Delete(&OfferModel{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectOffer, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectOffer, errorCodeDelete, wallet.ErrOfferNotFound)
	}
	return nil
}

func (store *Store) ListActivePricing(ctx context.Context) ([]wallet.PricingPlan, error) {
	var models []PricingPlanModel
	if err := store.db.WithContext(ctx).Where("active = ?", true).Order("price ASC").Find(&models).Error; err != nil {
		return nil, wrapStoreError(errorSubjectPlan, errorCodeList, err)
	}
	plans := make([]wallet.PricingPlan, 0, len(models))
	for _, model := range models {
		plans = append(plans, toPlan(model))
	}
	return plans, nil
}

func (store *Store) SavePricingPlan(ctx context.Context, plan wallet.PricingPlan) (wallet.PricingPlan, error) {
	model := PricingPlanModel{
		PlanID:         plan.PlanID,
		Label:          plan.Label,
		Type:           plan.Type.String(),
		Price:          plan.Price,
		DurationHours:  plan.DurationHours,
		IncludedAdults: plan.IncludedAdults,
		Active:         plan.Active,
	}
	if model.PlanID == 0 {
		if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
			return wallet.PricingPlan{}, wrapStoreError(errorSubjectPlan, errorCodeCreate, err)
		}
		return toPlan(model), nil
	}
	result := store.db.WithContext(ctx).
		Model(&PricingPlanModel{}).
		Where("plan_id = ?", model.PlanID).
		Updates(map[string]interface{}{
			"label":           model.Label,
			"type":            model.Type,
			"price":           model.Price,
			"duration_hours":  model.DurationHours,
			"included_adults": model.IncludedAdults,
			"active":          model.Active,
		})
	if result.Error != nil {
		return wallet.PricingPlan{}, wrapStoreError(errorSubjectPlan, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wallet.PricingPlan{}, wrapStoreError(errorSubjectPlan, errorCodeUpdate, wallet.ErrPlanNotFound)
	}
	return toPlan(model), nil
}

func (store *Store) DeletePricingPlan(ctx context.Context, planID int64) error {
	result := store.db.WithContext(ctx).Where("plan_id = ?", planID).Delete(&PricingPlanModel{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectPlan, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPlan, errorCodeDelete, wallet.ErrPlanNotFound)
	}
	return nil
}

func (store *Store) GetAdminByUsername(ctx context.Context, username string) (wallet.Admin, error) {
	var model AdminModel
	err := store.db.WithContext(ctx).Where("username = ?", username).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.Admin{}, wrapStoreError(errorSubjectAdmin, errorCodeGet, wallet.ErrAdminNotFound)
	}
	if err != nil {
		return wallet.Admin{}, wrapStoreError(errorSubjectAdmin, errorCodeGet, err)
	}
	return toAdmin(model)
}

func (store *Store) CreateAdmin(ctx context.Context, admin wallet.Admin) (wallet.Admin, error) {
	model := AdminModel{
		Username:     admin.Username,
		PasswordHash: admin.PasswordHash,
		Role:         admin.Role.String(),
		CreatedAt:    admin.CreatedAt,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, "username") {
		return wallet.Admin{}, wrapStoreError(errorSubjectAdmin, errorCodeDuplicate, wallet.ErrUsernameTaken)
	}
	if err != nil {
		return wallet.Admin{}, wrapStoreError(errorSubjectAdmin, errorCodeCreate, err)
	}
	return toAdmin(model)
}

func (store *Store) ListAdmins(ctx context.Context) ([]wallet.Admin, error) {
	var models []AdminModel
	if err := store.db.WithContext(ctx).Order("admin_id ASC").Find(&models).Error; err != nil {
		return nil, wrapStoreError(errorSubjectAdmin, errorCodeList, err)
	}
	admins := make([]wallet.Admin, 0, len(models))
	for _, model := range models {
		admin, err := toAdmin(model)
		if err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, nil
}

func (store *Store) DeleteAdmin(ctx context.Context, adminID int64) error {
	result := store.db.WithContext(ctx).Where("admin_id = ?", adminID).Delete(&AdminModel{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectAdmin, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectAdmin, errorCodeDelete, wallet.ErrAdminNotFound)
	}
	return nil
}

func (store *Store) CountAdmins(ctx context.Context) (int64, error) {
	var total int64
	if err := store.db.WithContext(ctx).Model(&AdminModel{}).Count(&total).Error; err != nil {
		return 0, wrapStoreError(errorSubjectAdmin, errorCodeCount, err)
	}
	return total, nil
}

// monthExpression extracts the calendar month from a date column in the
// running dialect.
func (store *Store) monthExpression(column string) string {
	if store.db.Dialector.Name() == "postgres" {
		return fmt.Sprintf("EXTRACT(MONTH FROM %s)", column)
	}
	return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", column)
}

func (store *Store) dayExpression(column string) string {
	if store.db.Dialector.Name() == "postgres" {
		return fmt.Sprintf("EXTRACT(DAY FROM %s)", column)
	}
	return fmt.Sprintf("CAST(strftime('%%d', %s) AS INTEGER)", column)
}

func toCustomer(model CustomerModel) wallet.Customer {
	return wallet.Customer{
		CustomerID:     model.CustomerID,
		Name:           model.Name,
		Mobile:         model.Mobile,
		Birthdate:      model.Birthdate,
		CurrentBalance: model.CurrentBalance,
		QRToken:        model.QRToken,
		CreatedAt:      model.CreatedAt,
	}
}

func toOffer(model OfferModel) wallet.RechargeOffer {
	return wallet.RechargeOffer{
		OfferID:       model.OfferID,
		TriggerAmount: model.TriggerAmount,
		BonusAmount:   model.BonusAmount,
		Description:   model.Description,
		Active:        model.Active,
	}
}

func toPlan(model PricingPlanModel) wallet.PricingPlan {
	return wallet.PricingPlan{
		PlanID:         model.PlanID,
		Label:          model.Label,
		Type:           wallet.PlanType(model.Type),
		Price:          model.Price,
		DurationHours:  model.DurationHours,
		IncludedAdults: model.IncludedAdults,
		Active:         model.Active,
	}
}

func toAdmin(model AdminModel) (wallet.Admin, error) {
	role, err := wallet.ParseAdminRole(model.Role)
	if err != nil {
		return wallet.Admin{}, wrapStoreError(errorSubjectAdmin, errorCodeInvalid, err)
	}
	return wallet.Admin{
		AdminID:      model.AdminID,
		Username:     model.Username,
		PasswordHash: model.PasswordHash,
		Role:         role,
		CreatedAt:    model.CreatedAt,
	}, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return wallet.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error, marker string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && strings.Contains(pgErr.ConstraintName, marker)
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode && strings.Contains(err.Error(), marker)
	}
	return false
}
