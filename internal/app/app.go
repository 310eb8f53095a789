package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chainforge/chainforge/internal/config"
	"github.com/chainforge/chainforge/internal/db"
	"github.com/chainforge/chainforge/internal/realtime"
	"github.com/chainforge/chainforge/internal/repository"
	"github.com/chainforge/chainforge/internal/service"
	"github.com/chainforge/chainforge/internal/service/payment"
)

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	Hub                 *realtime.Hub
	UserRepository      repository.UserRepository
	GroupMemberRepo     repository.GroupMemberRepository
	AuthService         *service.AuthService
	EmailService        *service.EmailService
	SubscriptionService *service.SubscriptionService
	PaymentService      payment.Provider
	GoalService         *service.GoalService
	GroupService        *service.GroupService
	GroupGoalService    *service.GroupGoalService
	PeriodService       *service.PeriodService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	subscriptionRepository := repository.NewSubscriptionRepository(database)
	goalRepository := repository.NewGoalRepository(database)
	goalProgressRepository := repository.NewGoalProgressRepository(database)
	groupRepository := repository.NewGroupRepository(database)
	groupMemberRepository := repository.NewGroupMemberRepository(database)
	groupGoalRepository := repository.NewGroupGoalRepository(database)
	periodRepository := repository.NewPeriodRepository(database)
	progressRepository := repository.NewParticipantProgressRepository(database)

	// Realtime hub (started by the server entrypoint)
	hub := realtime.NewHub()

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	subscriptionService := service.NewSubscriptionService(subscriptionRepository)

	// Initialize payment provider based on config
	paymentProvider, err := payment.NewProvider(cfg, subscriptionService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment provider: %v", err)
	}

	authService := service.NewAuthService(
		userRepository,
		subscriptionService,
		emailService,
		cfg.JWTSecret,
		cfg.JWTExpiry,
		cfg.IsProduction(),
	)
	goalService := service.NewGoalService(goalRepository, goalProgressRepository, subscriptionService)
	groupService := service.NewGroupService(groupRepository, groupMemberRepository, subscriptionService)
	groupGoalService := service.NewGroupGoalService(
		groupGoalRepository,
		periodRepository,
		progressRepository,
		groupMemberRepository,
		hub,
	)
	periodService := service.NewPeriodService(
		periodRepository,
		groupGoalRepository,
		progressRepository,
		groupMemberRepository,
		userRepository,
		emailService,
	)

	return &App{
		Cfg:                 cfg,
		DB:                  database,
		Hub:                 hub,
		UserRepository:      userRepository,
		GroupMemberRepo:     groupMemberRepository,
		AuthService:         authService,
		EmailService:        emailService,
		SubscriptionService: subscriptionService,
		PaymentService:      paymentProvider,
		GoalService:         goalService,
		GroupService:        groupService,
		GroupGoalService:    groupGoalService,
		PeriodService:       periodService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
