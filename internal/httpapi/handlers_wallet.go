package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/venueworks/playpass/pkg/wallet"
)

type rechargeRequest struct {
	CustomerID  int64           `json:"customer_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PaymentMode string          `json:"payment_mode"`
}

func (server *Server) handleRecharge(ctx *gin.Context) {
	var request rechargeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected customer_id and amount")
		return
	}
	amount, err := wallet.NewAmount(request.Amount)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	mode, err := wallet.ParsePaymentMode(request.PaymentMode)
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	receipt, err := server.wallets.Recharge(ctx.Request.Context(), request.CustomerID, amount, mode, currentAdmin(ctx).AdminID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	customer := receipt.Customer
	server.notifyAsync("recharge", func(notifyCtx context.Context) error {
		return server.notifier.Recharge(notifyCtx, customer.Name, customer.Mobile, receipt.Amount, receipt.Bonus, receipt.NewBalance)
	})

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"new_balance": receipt.NewBalance,
		"bonus":       receipt.Bonus,
		"message":     receipt.Message,
	})
}

func (server *Server) transactionFilter(ctx *gin.Context) (wallet.TransactionFilter, bool) {
	filter := wallet.TransactionFilter{Search: strings.TrimSpace(ctx.Query("search"))}
	if raw := ctx.Query("customer_id"); raw != "" {
		customerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || customerID <= 0 {
			respondBadRequest(ctx, "customer_id must be a positive integer")
			return wallet.TransactionFilter{}, false
		}
		filter.CustomerID = customerID
	}
	if raw := ctx.Query("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			respondBadRequest(ctx, "from must be YYYY-MM-DD")
			return wallet.TransactionFilter{}, false
		}
		filter.From = &from
	}
	if raw := ctx.Query("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			respondBadRequest(ctx, "to must be YYYY-MM-DD")
			return wallet.TransactionFilter{}, false
		}
		// Include the whole end day.
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}
	return filter, true
}

func (server *Server) handleListTransactions(ctx *gin.Context) {
	filter, ok := server.transactionFilter(ctx)
	if !ok {
		return
	}
	filter.Offset, filter.Limit = pagination(ctx)

	records, total, sums, err := server.wallets.Transactions(ctx.Request.Context(), filter)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"transactions": transactionRecordViews(records),
		"total":        total,
		"sums":         paymentSumsViewOf(sums),
	})
}
