package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/venueworks/playpass/internal/auth"
	"github.com/venueworks/playpass/pkg/wallet"
)

func errorResponse(code string, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// respondError maps domain errors onto HTTP statuses with stable codes.
func (server *Server) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrCustomerNotFound),
		errors.Is(err, wallet.ErrSessionNotFound),
		errors.Is(err, wallet.ErrOfferNotFound),
		errors.Is(err, wallet.ErrPlanNotFound),
		errors.Is(err, wallet.ErrAdminNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, wallet.ErrMobileTaken):
		ctx.JSON(http.StatusBadRequest, errorResponse("mobile_taken", "mobile number already registered"))
	case errors.Is(err, wallet.ErrUsernameTaken):
		ctx.JSON(http.StatusBadRequest, errorResponse("username_taken", "username already taken"))
	case errors.Is(err, wallet.ErrSessionActive):
		ctx.JSON(http.StatusBadRequest, errorResponse("session_active", "customer already has an active session"))
	case errors.Is(err, wallet.ErrSessionClosed):
		ctx.JSON(http.StatusBadRequest, errorResponse("session_closed", "session is already closed"))
	case errors.Is(err, wallet.ErrInsufficientBalance):
		ctx.JSON(http.StatusBadRequest, errorResponse("insufficient_balance", "wallet balance does not cover the cost"))
	case errors.Is(err, auth.ErrInvalidCredentials):
		ctx.JSON(http.StatusUnauthorized, errorResponse("invalid_credentials", "invalid username or password"))
	case errors.Is(err, auth.ErrInvalidToken):
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid or expired token"))
	case errors.Is(err, auth.ErrWeakPassword):
		ctx.JSON(http.StatusBadRequest, errorResponse("weak_password", "password is too short"))
	case isValidationError(err):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", err.Error()))
	default:
		server.logger.Error("request failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "internal error"))
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		wallet.ErrInvalidAmount,
		wallet.ErrInvalidMobile,
		wallet.ErrInvalidQRToken,
		wallet.ErrInvalidName,
		wallet.ErrInvalidDuration,
		wallet.ErrInvalidGuestCount,
		wallet.ErrInvalidDiscount,
		wallet.ErrInvalidPaymentMode,
		wallet.ErrInvalidKind,
		wallet.ErrInvalidStatus,
		wallet.ErrInvalidRole,
		wallet.ErrInvalidPlanType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func respondBadRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", message))
}
