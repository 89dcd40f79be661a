package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/venueworks/playpass/internal/auth"
	"github.com/venueworks/playpass/internal/httpapi"
	"github.com/venueworks/playpass/internal/metrics"
	"github.com/venueworks/playpass/internal/notify"
	"github.com/venueworks/playpass/internal/store/gormstore"
	"github.com/venueworks/playpass/pkg/wallet"
)

const (
	flagDatabaseURL    = "database-url"
	flagListenAddr     = "listen-addr"
	flagAllowedOrigins = "allowed-origins"
	flagPublicBaseURL  = "public-base-url"
	flagJWTSecret      = "jwt-secret"
	flagJWTIssuer      = "jwt-issuer"
	flagJWTTTL         = "jwt-ttl"
	flagBootstrapUser  = "bootstrap-admin-username"
	flagBootstrapPass  = "bootstrap-admin-password"

	flagTwilioAccountSID  = "twilio-account-sid"
	flagTwilioAuthToken   = "twilio-auth-token"
	flagTwilioFromNumber  = "twilio-from-number"
	flagTemplateWelcome   = "twilio-template-welcome"
	flagTemplateRecharge  = "twilio-template-recharge"
	flagTemplateStart     = "twilio-template-session-start"
	flagTemplateExit      = "twilio-template-session-exit"
	flagTemplateBroadcast = "twilio-template-broadcast"
	flagTemplateResendQR  = "twilio-template-resend-qr"

	defaultDatabaseURL = "sqlite:///tmp/playpass.db"
	defaultListenAddr  = ":8080"
	defaultJWTIssuer   = "playpass"
	defaultJWTTTL      = 12 * time.Hour
)

type runtimeConfig struct {
	DatabaseURL    string
	ListenAddr     string
	AllowedOrigins string
	PublicBaseURL  string
	JWTSecret      string
	JWTIssuer      string
	JWTTTL         time.Duration
	BootstrapUser  string
	BootstrapPass  string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	Templates        notify.TemplateSet
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "playpassd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "playpassd",
		Short:         "Play-area wallet and session ledger API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "database connection string (sqlite:// or postgres://)")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated CORS origins")
	cmd.Flags().String(flagPublicBaseURL, "", "public base URL used in QR image links")
	cmd.Flags().String(flagJWTSecret, "", "secret used to sign session tokens")
	cmd.Flags().String(flagJWTIssuer, defaultJWTIssuer, "issuer claim on session tokens")
	cmd.Flags().Duration(flagJWTTTL, defaultJWTTTL, "session token lifetime")
	cmd.Flags().String(flagBootstrapUser, "", "username for the initial SUPERADMIN account")
	cmd.Flags().String(flagBootstrapPass, "", "password for the initial SUPERADMIN account")

	cmd.Flags().String(flagTwilioAccountSID, "", "Twilio account SID (empty disables WhatsApp notifications)")
	cmd.Flags().String(flagTwilioAuthToken, "", "Twilio auth token")
	cmd.Flags().String(flagTwilioFromNumber, "", "WhatsApp sender number")
	cmd.Flags().String(flagTemplateWelcome, "", "content template SID for welcome messages")
	cmd.Flags().String(flagTemplateRecharge, "", "content template SID for recharge receipts")
	cmd.Flags().String(flagTemplateStart, "", "content template SID for session start messages")
	cmd.Flags().String(flagTemplateExit, "", "content template SID for session exit messages")
	cmd.Flags().String(flagTemplateBroadcast, "", "content template SID for broadcast messages")
	cmd.Flags().String(flagTemplateResendQR, "", "content template SID for QR resend messages")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvPrefix("PLAYPASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for _, flag := range []string{
		flagDatabaseURL, flagListenAddr, flagAllowedOrigins, flagPublicBaseURL,
		flagJWTSecret, flagJWTIssuer, flagJWTTTL, flagBootstrapUser, flagBootstrapPass,
		flagTwilioAccountSID, flagTwilioAuthToken, flagTwilioFromNumber,
		flagTemplateWelcome, flagTemplateRecharge, flagTemplateStart,
		flagTemplateExit, flagTemplateBroadcast, flagTemplateResendQR,
	} {
		if err := viper.BindPFlag(flag, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(flagDatabaseURL)
	cfg.ListenAddr = viper.GetString(flagListenAddr)
	cfg.AllowedOrigins = viper.GetString(flagAllowedOrigins)
	cfg.PublicBaseURL = viper.GetString(flagPublicBaseURL)
	cfg.JWTSecret = viper.GetString(flagJWTSecret)
	cfg.JWTIssuer = viper.GetString(flagJWTIssuer)
	cfg.JWTTTL = viper.GetDuration(flagJWTTTL)
	cfg.BootstrapUser = viper.GetString(flagBootstrapUser)
	cfg.BootstrapPass = viper.GetString(flagBootstrapPass)

	cfg.TwilioAccountSID = viper.GetString(flagTwilioAccountSID)
	cfg.TwilioAuthToken = viper.GetString(flagTwilioAuthToken)
	cfg.TwilioFromNumber = viper.GetString(flagTwilioFromNumber)
	cfg.Templates = notify.TemplateSet{
		Welcome:      viper.GetString(flagTemplateWelcome),
		Recharge:     viper.GetString(flagTemplateRecharge),
		SessionStart: viper.GetString(flagTemplateStart),
		SessionExit:  viper.GetString(flagTemplateExit),
		Broadcast:    viper.GetString(flagTemplateBroadcast),
		ResendQR:     viper.GetString(flagTemplateResendQR),
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database url is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	if err := gormstore.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	store := gormstore.New(gormDB)
	walletService, err := wallet.NewService(store, time.Now,
		wallet.WithOperationLogger(&zapOperationLogger{logger: logger}),
		wallet.WithOperationLogger(metrics.NewOperationCounter()),
	)
	if err != nil {
		return fmt.Errorf("wallet service init: %w", err)
	}

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL, time.Now)
	if err != nil {
		return fmt.Errorf("token issuer init: %w", err)
	}
	authService, err := auth.NewService(store, issuer, time.Now)
	if err != nil {
		return fmt.Errorf("auth service init: %w", err)
	}

	if cfg.BootstrapUser != "" {
		created, err := authService.Bootstrap(ctx, cfg.BootstrapUser, cfg.BootstrapPass)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			logger.Info("bootstrap superadmin created", zap.String("username", cfg.BootstrapUser))
		}
	}

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("notifier init: %w", err)
	}

	server, err := httpapi.NewServer(httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: httpapi.ParseAllowedOrigins(cfg.AllowedOrigins),
		PublicBaseURL:  cfg.PublicBaseURL,
	}, logger, walletService, authService, notifier, time.Now)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}
	return server.Run(ctx)
}

func buildNotifier(cfg *runtimeConfig, logger *zap.Logger) (notify.Notifier, error) {
	if cfg.TwilioAccountSID == "" {
		logger.Info("twilio credentials absent, whatsapp notifications disabled")
		return notify.Nop{}, nil
	}
	return notify.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.Templates)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		parsed, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := parsed.Path
		if path == "" {
			path = parsed.Host
		}
		if path == "" || path == "/" {
			path = "playpass.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

// zapOperationLogger mirrors wallet operation callbacks into structured logs.
type zapOperationLogger struct {
	logger *zap.Logger
}

func (operationLogger *zapOperationLogger) LogOperation(ctx context.Context, entry wallet.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.Int64("customer_id", entry.CustomerID),
	}
	if entry.SessionID != 0 {
		fields = append(fields, zap.Int64("session_id", entry.SessionID))
	}
	if entry.Count != 0 {
		fields = append(fields, zap.Int64("count", entry.Count))
	}
	if !entry.Amount.IsZero() {
		fields = append(fields, zap.String("amount", entry.Amount.String()))
	}
	if !entry.Bonus.IsZero() {
		fields = append(fields, zap.String("bonus", entry.Bonus.String()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn("wallet operation failed", fields...)
		return
	}
	operationLogger.logger.Info("wallet operation", fields...)
}
