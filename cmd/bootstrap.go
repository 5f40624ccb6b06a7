package cmd

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/jobs"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/notification"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/repository"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/service"
	"github.com/vibast-solutions/ms-go-hotel-billing/config"

	_ "github.com/go-sql-driver/mysql"
)

const settlementLockKey = "hotel-billing:lock:" + jobs.PlatformFeeJobName

type application struct {
	cfg                 *config.Config
	db                  *sql.DB
	publisher           notification.Publisher
	planService         *service.PlanService
	subscriptionService *service.SubscriptionService
	settlementService   *service.SettlementService
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func mustCreateApplication() *application {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)

	var publisher notification.Publisher = notification.NewLogPublisher()
	if cfg.RabbitMQ.URL != "" {
		producer, err := notification.NewEventProducer(cfg.RabbitMQ.URL)
		if err != nil {
			_ = db.Close()
			logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
		}
		publisher = producer
	}

	transactor := repository.NewTransactor(db)
	planRepo := repository.NewPlanRepository(db)
	historyRepo := repository.NewSubscriptionHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	ledger := service.NewLedgerService(walletRepo, transactionRepo)
	notifications := notification.NewService(notificationRepo, publisher, cfg.RabbitMQ.NotificationsExchange)

	return &application{
		cfg:         cfg,
		db:          db,
		publisher:   publisher,
		planService: service.NewPlanService(planRepo),
		subscriptionService: service.NewSubscriptionService(
			transactor,
			planRepo,
			historyRepo,
			userRepo,
			walletRepo,
			ledger,
			notifications,
			cfg.Subscriptions.Location,
		),
		settlementService: service.NewSettlementService(
			transactor,
			bookingRepo,
			userRepo,
			walletRepo,
			ledger,
			notifications,
			cfg.Settlement.FeeRate,
		),
	}
}

func (a *application) Close() {
	a.publisher.Close()
	if err := a.db.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close database")
	}
}

// newSettlementLock returns a Redis lock when Redis is configured and an
// in-process lock otherwise.
func (a *application) newSettlementLock() (jobs.Lock, func()) {
	if a.cfg.Redis.Addr == "" {
		return &jobs.LocalLock{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	lock, err := jobs.NewLeaseLock(jobs.NewRedisBackend(client), settlementLockKey, a.cfg.Settlement.LockTTL)
	if err != nil {
		_ = client.Close()
		logrus.WithError(err).Fatal("Failed to create settlement lock")
	}
	return lock, func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
	}
}
