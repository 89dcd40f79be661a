// Package httpapi exposes the staff-facing REST API over gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/venueworks/playpass/internal/auth"
	"github.com/venueworks/playpass/internal/notify"
	"github.com/venueworks/playpass/pkg/wallet"
)

var mobileFieldPattern = regexp.MustCompile(`^[0-9]{10}$`)

// Server holds the API dependencies.
type Server struct {
	config   Config
	logger   *zap.Logger
	wallets  *wallet.Service
	auth     *auth.Service
	notifier notify.Notifier
	nowFn    func() time.Time
}

// NewServer wires a Server and registers request validators.
func NewServer(config Config, logger *zap.Logger, walletService *wallet.Service, authService *auth.Service, notifier notify.Notifier, now func() time.Time) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	if walletService == nil {
		return nil, fmt.Errorf("wallet service is nil")
	}
	if authService == nil {
		return nil, fmt.Errorf("auth service is nil")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	registerValidators()
	return &Server{
		config:   config,
		logger:   logger,
		wallets:  walletService,
		auth:     authService,
		notifier: notifier,
		nowFn:    now,
	}, nil
}

func registerValidators() {
	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = engine.RegisterValidation("mobile10", func(field validator.FieldLevel) bool {
			return mobileFieldPattern.MatchString(field.Field().String())
		})
	}
}

// Router builds the gin engine with every route registered.
func (server *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	// Public: WhatsApp messages link customers straight to their code.
	router.GET("/qr/:token", server.handleQRImage)

	api := router.Group("/api")
	api.POST("/login", server.handleLogin)

	authed := api.Group("")
	authed.Use(server.requireAuth())

	authed.POST("/logout", server.handleLogout)
	authed.GET("/dashboard", server.handleDashboard)
	authed.GET("/pricing", server.handlePricing)

	authed.POST("/customers", server.handleRegisterCustomer)
	authed.GET("/customers", server.handleListCustomers)
	authed.GET("/customers/export", server.handleExportCustomers)
	authed.GET("/customers/by-qr/:token", server.handleCustomerByQR)
	authed.GET("/customers/:id", server.handleGetCustomer)
	authed.PUT("/customers/:id", server.handleUpdateCustomer)
	authed.DELETE("/customers/:id", server.handleDeleteCustomer)
	authed.POST("/customers/:id/resend-qr", server.handleResendQR)

	authed.GET("/birthdays", server.handleBirthdays)
	authed.POST("/birthdays/greet", server.handleBirthdayGreeting)

	authed.POST("/recharge", server.handleRecharge)
	authed.GET("/transactions", server.handleListTransactions)
	authed.GET("/transactions/export", server.handleExportTransactions)

	authed.POST("/sessions/start", server.handleStartSession)
	authed.POST("/sessions/:id/exit", server.handleExitSession)
	authed.GET("/sessions", server.handleListSessions)
	authed.GET("/sessions/export", server.handleExportSessions)

	authed.POST("/broadcast", server.handleBroadcast)

	admin := authed.Group("/admin")
	admin.GET("/offers", server.handleListOffers)
	admin.POST("/offers", server.requireSuperAdmin(), server.handleSaveOffer)
	admin.DELETE("/offers/:id", server.requireSuperAdmin(), server.handleDeleteOffer)
	admin.POST("/pricing", server.requireSuperAdmin(), server.handleSavePricingPlan)
	admin.DELETE("/pricing/:id", server.requireSuperAdmin(), server.handleDeletePricingPlan)
	admin.POST("/register", server.requireSuperAdmin(), server.handleRegisterAdmin)
	admin.GET("/list", server.handleListAdmins)
	admin.DELETE("/:id", server.requireSuperAdmin(), server.handleDeleteAdmin)

	return router
}

// Run serves the API until the context is cancelled.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.config.ListenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("api listening", zap.String("addr", server.config.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
