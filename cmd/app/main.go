package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StoreProAPI/external/abstractapi"
	"StoreProAPI/external/kafka"
	"StoreProAPI/external/midtrans"
	"StoreProAPI/external/resend"

	"StoreProAPI/internal/config"
	"StoreProAPI/internal/db"
	"StoreProAPI/internal/events"
	"StoreProAPI/internal/middleware"
	"StoreProAPI/internal/realtime"
	"StoreProAPI/internal/repository"
	"StoreProAPI/internal/services"
	"StoreProAPI/internal/storage"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:          "storepro",
		Short:        "StorePro e-commerce API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfgPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to a config file (default ./config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfgPath)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), cfgPath)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Println("schema applied")
	return nil
}

func serve(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	e := echo.New()

	// ======================
	// INFRA
	// ======================
	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// ======================
	// EXTERNALS
	// ======================
	emailValidator := services.ChainValidator{services.NewLocalValidator()}
	if cfg.EmailReputation.Enabled {
		reputation, err := abstractapi.NewAbstractReputationValidator(cfg.EmailReputation.APIKey)
		if err != nil {
			return err
		}
		emailValidator = append(emailValidator, reputation)
	}

	var mailer services.EmailSender
	if cfg.Mail.ResendAPIKey != "" {
		m, err := resend.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From)
		if err != nil {
			return err
		}
		mailer = m
	} else {
		log.Println("mail.resend_api_key not set, password reset emails are disabled")
	}

	paymentProvider, err := midtrans.NewProvider(cfg.Payment)
	if err != nil {
		return err
	}

	images, err := storage.NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.BaseURL)
	if err != nil {
		return err
	}

	feed := realtime.NewHub(cfg.Server.CORSOrigins, e.Logger)
	defer feed.Close()
	publishers := events.Multi{feed}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, e.Logger)
		if err != nil {
			return err
		}
		defer producer.Close()
		publishers = append(publishers, producer)
	}

	// ======================
	// REPOSITORIES
	// ======================
	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	// ======================
	// SERVICES
	// ======================
	jwtIssuer, err := middleware.NewJWT(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTExpiryHours)*time.Hour)
	if err != nil {
		return err
	}
	authz, err := middleware.NewAuthorizer()
	if err != nil {
		return err
	}

	s := &server{
		cfg:        cfg,
		jwt:        jwtIssuer,
		authz:      authz,
		auth:       services.NewAuthService(userRepo, mailer, emailValidator, cfg.Mail.ResetURLPrefix),
		users:      services.NewUserService(userRepo),
		categories: services.NewCategoryService(categoryRepo, productRepo),
		products:   services.NewProductService(productRepo, categoryRepo, images),
		carts:      services.NewCartService(cartRepo, productRepo),
		orders:     services.NewOrderService(orderRepo, cartRepo, productRepo, publishers),
		payments:   services.NewPaymentService(paymentRepo, orderRepo, paymentProvider, publishers, cfg.Payment),
		images:     images,
		feed:       feed,
	}

	// ======================
	// ECHO + ROUTES
	// ======================
	s.mount(e)

	// ======================
	// SERVER
	// ======================
	for _, r := range e.Routes() {
		e.Logger.Debugf("%s %s", r.Method, r.Path)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
