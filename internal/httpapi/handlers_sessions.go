package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/venueworks/playpass/pkg/wallet"
)

type startSessionRequest struct {
	QRToken            string          `json:"qr_token" binding:"required"`
	Adults             int             `json:"adults"`
	Children           int             `json:"children" binding:"required"`
	DurationHours      decimal.Decimal `json:"duration_hours" binding:"required"`
	ActualCost         decimal.Decimal `json:"actual_cost"`
	DiscountedCost     decimal.Decimal `json:"discounted_cost"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountReason     string          `json:"discount_reason"`
}

func (server *Server) handleStartSession(ctx *gin.Context) {
	var request startSessionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected qr_token, children, and duration_hours")
		return
	}
	token, err := wallet.NewQRToken(request.QRToken)
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	session, customer, err := server.wallets.StartSession(ctx.Request.Context(), wallet.StartSessionInput{
		QRToken:            token,
		Adults:             request.Adults,
		Children:           request.Children,
		DurationHours:      request.DurationHours,
		ActualCost:         request.ActualCost,
		DiscountedCost:     request.DiscountedCost,
		DiscountPercentage: request.DiscountPercentage,
		DiscountReason:     request.DiscountReason,
		AdminID:            currentAdmin(ctx).AdminID,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	guests := fmt.Sprintf("%d adults, %d children", session.Adults, session.Children)
	server.notifyAsync("session_start", func(notifyCtx context.Context) error {
		return server.notifier.SessionStart(notifyCtx, customer.Name, customer.Mobile, session.DiscountedCost, guests)
	})

	ctx.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"session":     sessionViewOf(session),
		"new_balance": customer.CurrentBalance,
	})
}

func (server *Server) handleExitSession(ctx *gin.Context) {
	sessionID, ok := pathID(ctx)
	if !ok {
		return
	}
	session, customer, err := server.wallets.ExitSession(ctx.Request.Context(), sessionID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	server.notifyAsync("session_exit", func(notifyCtx context.Context) error {
		return server.notifier.SessionExit(notifyCtx, customer.Name, customer.Mobile, customer.CurrentBalance)
	})

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sessionViewOf(session),
	})
}

func (server *Server) handleListSessions(ctx *gin.Context) {
	offset, limit := pagination(ctx)
	records, total, err := server.wallets.Sessions(ctx.Request.Context(), offset, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"sessions": sessionRecordViews(records),
		"total":    total,
	})
}

func (server *Server) handleDashboard(ctx *gin.Context) {
	report, err := server.wallets.Dashboard(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"active_sessions":  report.ActiveSessions,
		"overdue_sessions": report.OverdueSessions,
		"monthly_revenue":  report.MonthlyRevenue,
		"active_list":      sessionRecordViews(report.ActiveList),
		"overdue_list":     sessionRecordViews(report.OverdueList),
	})
}

func (server *Server) handlePricing(ctx *gin.Context) {
	plans, err := server.wallets.ActivePricing(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"plans": pricingPlanViews(plans)})
}
