package httpapi

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/venueworks/playpass/internal/metrics"
	"github.com/venueworks/playpass/pkg/wallet"
)

const broadcastWorkers = 8

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (server *Server) handleLogin(ctx *gin.Context) {
	var request loginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected username and password")
		return
	}
	session, err := server.auth.Login(ctx.Request.Context(), request.Username, request.Password)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"username":   session.Admin.Username,
		"role":       session.Admin.Role.String(),
	})
}

// handleLogout acknowledges the logout; tokens are stateless, so the
// client discards its copy and the token simply ages out.
func (server *Server) handleLogout(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (server *Server) handleListOffers(ctx *gin.Context) {
	offers, err := server.wallets.Offers(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"offers": offerViews(offers)})
}

type saveOfferRequest struct {
	ID            int64           `json:"id"`
	TriggerAmount decimal.Decimal `json:"trigger_amount" binding:"required"`
	BonusAmount   decimal.Decimal `json:"bonus_amount" binding:"required"`
	Description   string          `json:"description"`
	Active        *bool           `json:"active"`
}

func (server *Server) handleSaveOffer(ctx *gin.Context) {
	var request saveOfferRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected trigger_amount and bonus_amount")
		return
	}
	if !request.TriggerAmount.IsPositive() || request.BonusAmount.IsNegative() {
		respondBadRequest(ctx, "trigger_amount must be positive and bonus_amount non-negative")
		return
	}
	active := true
	if request.Active != nil {
		active = *request.Active
	}
	offer, err := server.wallets.SaveOffer(ctx.Request.Context(), wallet.RechargeOffer{
		OfferID:       request.ID,
		TriggerAmount: request.TriggerAmount,
		BonusAmount:   request.BonusAmount,
		Description:   request.Description,
		Active:        active,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"offer": offerViewOf(offer)})
}

func (server *Server) handleDeleteOffer(ctx *gin.Context) {
	offerID, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := server.wallets.DeleteOffer(ctx.Request.Context(), offerID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

type savePricingPlanRequest struct {
	ID             int64           `json:"id"`
	Label          string          `json:"label" binding:"required"`
	Type           string          `json:"type"`
	Price          decimal.Decimal `json:"price" binding:"required"`
	DurationHours  decimal.Decimal `json:"duration_hours"`
	IncludedAdults int             `json:"included_adults"`
	Active         *bool           `json:"active"`
}

func (server *Server) handleSavePricingPlan(ctx *gin.Context) {
	var request savePricingPlanRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected label and price")
		return
	}
	if request.Type == "" {
		request.Type = wallet.PlanTypePlan.String()
	}
	planType, err := wallet.ParsePlanType(request.Type)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	if !request.Price.IsPositive() || request.DurationHours.IsNegative() {
		respondBadRequest(ctx, "price must be positive and duration_hours non-negative")
		return
	}
	if request.IncludedAdults < 0 {
		respondBadRequest(ctx, "included_adults must not be negative")
		return
	}
	active := true
	if request.Active != nil {
		active = *request.Active
	}
	plan, err := server.wallets.SavePricingPlan(ctx.Request.Context(), wallet.PricingPlan{
		PlanID:         request.ID,
		Label:          request.Label,
		Type:           planType,
		Price:          request.Price,
		DurationHours:  request.DurationHours,
		IncludedAdults: request.IncludedAdults,
		Active:         active,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"plan": pricingPlanViewOf(plan)})
}

func (server *Server) handleDeletePricingPlan(ctx *gin.Context) {
	planID, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := server.wallets.DeletePricingPlan(ctx.Request.Context(), planID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

type registerAdminRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

func (server *Server) handleRegisterAdmin(ctx *gin.Context) {
	var request registerAdminRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected username, password, and role")
		return
	}
	role, err := wallet.ParseAdminRole(request.Role)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	admin, err := server.auth.RegisterAdmin(ctx.Request.Context(), request.Username, request.Password, role)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"admin": adminView{
		ID:        admin.AdminID,
		Username:  admin.Username,
		Role:      admin.Role.String(),
		CreatedAt: admin.CreatedAt,
	}})
}

func (server *Server) handleListAdmins(ctx *gin.Context) {
	admins, err := server.auth.Admins(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"admins": adminViews(admins)})
}

func (server *Server) handleDeleteAdmin(ctx *gin.Context) {
	adminID, ok := pathID(ctx)
	if !ok {
		return
	}
	if adminID == currentAdmin(ctx).AdminID {
		respondBadRequest(ctx, "cannot delete the account you are logged in with")
		return
	}
	if err := server.auth.DeleteAdmin(ctx.Request.Context(), adminID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

type broadcastRequest struct {
	Message string `json:"message" binding:"required"`
}

// handleBroadcast sends one message to every customer and reports how
// many deliveries succeeded. A single failed number never aborts the
// rest of the run.
func (server *Server) handleBroadcast(ctx *gin.Context) {
	var request broadcastRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBadRequest(ctx, "expected message")
		return
	}
	customers, err := server.wallets.Customers(ctx.Request.Context(), wallet.CustomerFilter{})
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	var sent, failed int64
	jobs := make(chan wallet.Customer)
	var waitGroup sync.WaitGroup
	for worker := 0; worker < broadcastWorkers; worker++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for customer := range jobs {
				sendErr := server.notifier.Broadcast(ctx.Request.Context(), customer.Mobile, request.Message)
				metrics.CountNotification("broadcast", sendErr)
				if sendErr != nil {
					atomic.AddInt64(&failed, 1)
					server.logger.Warn("broadcast delivery failed",
						zap.String("mobile", customer.Mobile), zap.Error(sendErr))
					continue
				}
				atomic.AddInt64(&sent, 1)
			}
		}()
	}
	for _, customer := range customers {
		jobs <- customer
	}
	close(jobs)
	waitGroup.Wait()

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"sent":    sent,
		"failed":  failed,
		"total":   len(customers),
	})
}
