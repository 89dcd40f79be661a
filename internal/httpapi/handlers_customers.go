package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/venueworks/playpass/internal/qrimg"
	"github.com/venueworks/playpass/pkg/wallet"
)

type registerCustomerRequest struct {
	Name           string          `json:"name" binding:"required"`
	Mobile         string          `json:"mobile" binding:"required,mobile10"`
	Birthdate      string          `json:"birthdate" binding:"required"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	PaymentMode    string          `json:"payment_mode"`
}

func (server *Server) handleRegisterCustomer(ctx *gin.Context) {
	var request registerCustomerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected name, 10-digit mobile, and birthdate")
		return
	}
	mobile, err := wallet.NewMobileNumber(request.Mobile)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	birthdate, err := time.Parse(dateLayout, request.Birthdate)
	if err != nil {
		respondBadRequest(ctx, "birthdate must be YYYY-MM-DD")
		return
	}
	initialBalance, err := wallet.NewStartingBalance(request.InitialBalance)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	mode, err := wallet.ParsePaymentMode(request.PaymentMode)
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	receipt, err := server.wallets.RegisterCustomer(ctx.Request.Context(), wallet.RegistrationInput{
		Name:           request.Name,
		Mobile:         mobile,
		Birthdate:      birthdate,
		InitialBalance: initialBalance,
		PaymentMode:    mode,
		AdminID:        currentAdmin(ctx).AdminID,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	customer := receipt.Customer
	imageURL := qrimg.ImageURL(server.config.PublicBaseURL, customer.QRToken)
	server.notifyAsync("welcome", func(notifyCtx context.Context) error {
		return server.notifier.Welcome(notifyCtx, customer.Name, customer.Mobile, imageURL, customer.CurrentBalance)
	})

	ctx.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"customer": server.customerView(customer),
		"bonus":    receipt.Bonus,
	})
}

func (server *Server) handleListCustomers(ctx *gin.Context) {
	customers, err := server.wallets.Customers(ctx.Request.Context(), wallet.CustomerFilter{
		Search: strings.TrimSpace(ctx.Query("search")),
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"customers": server.customerViews(customers)})
}

func (server *Server) handleGetCustomer(ctx *gin.Context) {
	customerID, ok := pathID(ctx)
	if !ok {
		return
	}
	customer, err := server.wallets.Customer(ctx.Request.Context(), customerID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"customer": server.customerView(customer)})
}

type updateCustomerRequest struct {
	Name      string `json:"name" binding:"required"`
	Mobile    string `json:"mobile" binding:"required,mobile10"`
	Birthdate string `json:"birthdate"`
}

func (server *Server) handleUpdateCustomer(ctx *gin.Context) {
	customerID, ok := pathID(ctx)
	if !ok {
		return
	}
	var request updateCustomerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected name and 10-digit mobile")
		return
	}
	mobile, err := wallet.NewMobileNumber(request.Mobile)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	var birthdate *time.Time
	if request.Birthdate != "" {
		parsed, err := time.Parse(dateLayout, request.Birthdate)
		if err != nil {
			respondBadRequest(ctx, "birthdate must be YYYY-MM-DD")
			return
		}
		birthdate = &parsed
	}
	customer, err := server.wallets.UpdateCustomer(ctx.Request.Context(), customerID, request.Name, mobile, birthdate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"customer": server.customerView(customer)})
}

func (server *Server) handleDeleteCustomer(ctx *gin.Context) {
	customerID, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := server.wallets.DeleteCustomer(ctx.Request.Context(), customerID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (server *Server) handleCustomerByQR(ctx *gin.Context) {
	token, err := wallet.NewQRToken(ctx.Param("token"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	customer, err := server.wallets.CustomerByQRToken(ctx.Request.Context(), token)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"customer": server.customerView(customer)})
}

func (server *Server) handleResendQR(ctx *gin.Context) {
	customerID, ok := pathID(ctx)
	if !ok {
		return
	}
	customer, err := server.wallets.Customer(ctx.Request.Context(), customerID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	imageURL := qrimg.ImageURL(server.config.PublicBaseURL, customer.QRToken)
	server.notifyAsync("resend_qr", func(notifyCtx context.Context) error {
		return server.notifier.ResendQR(notifyCtx, customer.Name, customer.Mobile, imageURL)
	})
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// handleQRImage serves the entry QR as a PNG. The route is public so
// the link inside a WhatsApp message renders without a login.
func (server *Server) handleQRImage(ctx *gin.Context) {
	token := strings.TrimSuffix(ctx.Param("token"), ".png")
	parsed, err := wallet.NewQRToken(token)
	if err != nil {
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "unknown code"))
		return
	}
	if _, err := server.wallets.CustomerByQRToken(ctx.Request.Context(), parsed); err != nil {
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "unknown code"))
		return
	}
	image, err := qrimg.PNG(parsed.String())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "image/png", image)
}

func (server *Server) handleBirthdays(ctx *gin.Context) {
	month := int(server.nowFn().Month())
	if raw := ctx.Query("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			respondBadRequest(ctx, "month must be 1..12")
			return
		}
		month = parsed
	}
	offset, limit := pagination(ctx)
	customers, total, err := server.wallets.BirthdayCustomers(ctx.Request.Context(), time.Month(month), strings.TrimSpace(ctx.Query("search")), offset, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"customers": server.customerViews(customers),
		"total":     total,
		"month":     month,
	})
}

type birthdayGreetingRequest struct {
	CustomerID int64  `json:"customer_id" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

func (server *Server) handleBirthdayGreeting(ctx *gin.Context) {
	var request birthdayGreetingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected customer_id and message")
		return
	}
	customer, err := server.wallets.Customer(ctx.Request.Context(), request.CustomerID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	server.notifyAsync("birthday", func(notifyCtx context.Context) error {
		return server.notifier.Broadcast(notifyCtx, customer.Mobile, request.Message)
	})
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func pathID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(ctx, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func pagination(ctx *gin.Context) (int, int) {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maximumPageLimit {
		limit = maximumPageLimit
	}
	return (page - 1) * limit, limit
}
