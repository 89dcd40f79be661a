package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/venueworks/playpass/pkg/wallet"
)

func (store *Store) CreateSession(ctx context.Context, session wallet.Session) (wallet.Session, error) {
	model := SessionModel{
		CustomerID:         session.CustomerID,
		Adults:             session.Adults,
		Children:           session.Children,
		DurationHours:      session.DurationHours,
		ActualCost:         session.ActualCost,
		DiscountedCost:     session.DiscountedCost,
		DiscountPercentage: session.DiscountPercentage,
		DiscountReason:     session.DiscountReason,
		StartedAt:          session.StartedAt,
		ExpectedEndAt:      session.ExpectedEndAt,
		Status:             session.Status.String(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, "customer") {
		return wallet.Session{}, wrapStoreError(errorSubjectSession, errorCodeDuplicate, wallet.ErrSessionActive)
	}
	if err != nil {
		return wallet.Session{}, wrapStoreError(errorSubjectSession, errorCodeCreate, err)
	}
	return mapSessionModel(model)
}

func (store *Store) GetSession(ctx context.Context, sessionID int64) (wallet.Session, error) {
	var model SessionModel
	err := store.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.Session{}, wrapStoreError(errorSubjectSession, errorCodeGet, wallet.ErrSessionNotFound)
	}
	if err != nil {
		return wallet.Session{}, wrapStoreError(errorSubjectSession, errorCodeGet, err)
	}
	return mapSessionModel(model)
}

func (store *Store) HasOpenSession(ctx context.Context, customerID int64) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("customer_id = ? AND status IN ?", customerID, openStatuses()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectSession, errorCodeCount, err)
	}
	return count > 0, nil
}

// CloseSession flips an open session to COMPLETED. The status filter
// makes the transition a compare-and-swap: a session already closed
// affects zero rows and keeps its original end time.
func (store *Store) CloseSession(ctx context.Context, sessionID int64, endedAt time.Time) (int64, error) {
	result := store.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("session_id = ? AND status IN ?", sessionID, openStatuses()).
		Updates(map[string]interface{}{
			"status":   wallet.StatusCompleted.String(),
			"ended_at": endedAt,
		})
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectSession, errorCodeClose, result.Error)
	}
	return result.RowsAffected, nil
}

// MarkOverdueSessions is one bulk UPDATE, so concurrent sweeps cannot
// double-flip a session.
func (store *Store) MarkOverdueSessions(ctx context.Context, now time.Time) (int64, error) {
	result := store.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("status = ? AND expected_end_at < ?", wallet.StatusActive.String(), now).
		UpdateColumn("status", wallet.StatusOverdue.String())
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectSession, errorCodeSweep, result.Error)
	}
	return result.RowsAffected, nil
}

func (store *Store) CountSessionsByStatus(ctx context.Context, status wallet.SessionStatus) (int64, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("status = ?", status.String()).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectSession, errorCodeCount, err)
	}
	return count, nil
}

// sessionRow carries a session joined with the customer identity
// columns staff lists display.
type sessionRow struct {
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
	Status             string
	CustomerName       string
	CustomerMobile     string
}

func (store *Store) sessionQuery(ctx context.Context) *gorm.DB {
	return store.db.WithContext(ctx).Model(&SessionModel{}).
		Joins("LEFT JOIN customers ON customers.customer_id = sessions.customer_id").
		Select("sessions.*, customers.name AS customer_name, customers.mobile AS customer_mobile")
}

func (store *Store) ListSessionsByStatus(ctx context.Context, status wallet.SessionStatus) ([]wallet.SessionRecord, error) {
	order := "sessions.started_at DESC"
	if status == wallet.StatusOverdue {
		order = "sessions.expected_end_at ASC"
	}
	var rows []sessionRow
	err := store.sessionQuery(ctx).
		Where("sessions.status = ?", status.String()).
		Order(order).
		Scan(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectSession, errorCodeList, err)
	}
	return mapSessionRows(rows)
}

func (store *Store) ListSessions(ctx context.Context, offset int, limit int) ([]wallet.SessionRecord, int64, error) {
	var total int64
	if err := store.db.WithContext(ctx).Model(&SessionModel{}).Count(&total).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectSession, errorCodeCount, err)
	}
	query := store.sessionQuery(ctx).Order("sessions.started_at DESC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []sessionRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectSession, errorCodeList, err)
	}
	records, err := mapSessionRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func openStatuses() []string {
	return []string{wallet.StatusActive.String(), wallet.StatusOverdue.String()}
}

func mapSessionModel(model SessionModel) (wallet.Session, error) {
	status, err := wallet.ParseSessionStatus(model.Status)
	if err != nil {
		return wallet.Session{}, wrapStoreError(errorSubjectSession, errorCodeInvalid, err)
	}
	return wallet.Session{
		SessionID:          model.SessionID,
		CustomerID:         model.CustomerID,
		Adults:             model.Adults,
		Children:           model.Children,
		DurationHours:      model.DurationHours,
		ActualCost:         model.ActualCost,
		DiscountedCost:     model.DiscountedCost,
		DiscountPercentage: model.DiscountPercentage,
		DiscountReason:     model.DiscountReason,
		StartedAt:          model.StartedAt,
		ExpectedEndAt:      model.ExpectedEndAt,
		EndedAt:            model.EndedAt,
		Status:             status,
	}, nil
}

func mapSessionRows(rows []sessionRow) ([]wallet.SessionRecord, error) {
	records := make([]wallet.SessionRecord, 0, len(rows))
	for _, row := range rows {
		status, err := wallet.ParseSessionStatus(row.Status)
		if err != nil {
			return nil, wrapStoreError(errorSubjectSession, errorCodeInvalid, err)
		}
		records = append(records, wallet.SessionRecord{
			Session: wallet.Session{
				SessionID:          row.SessionID,
				CustomerID:         row.CustomerID,
				Adults:             row.Adults,
				Children:           row.Children,
				DurationHours:      row.DurationHours,
				ActualCost:         row.ActualCost,
				DiscountedCost:     row.DiscountedCost,
				DiscountPercentage: row.DiscountPercentage,
				DiscountReason:     row.DiscountReason,
				StartedAt:          row.StartedAt,
				ExpectedEndAt:      row.ExpectedEndAt,
				EndedAt:            row.EndedAt,
				Status:             status,
			},
			CustomerName:   row.CustomerName,
			CustomerMobile: row.CustomerMobile,
		})
	}
	return records, nil
}
