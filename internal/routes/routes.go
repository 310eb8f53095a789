package routes

import (
	"net/http"

	"github.com/chainforge/chainforge/internal/app"
	"github.com/chainforge/chainforge/internal/handler"
	"github.com/chainforge/chainforge/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService)
	goal := handler.NewGoalHandler(app.GoalService)
	group := handler.NewGroupHandler(app.GroupService, app.GroupMemberRepo, app.Hub, app.Cfg.AppURL)
	groupGoal := handler.NewGroupGoalHandler(app.GroupGoalService)
	billing := handler.NewBillingHandler(app.PaymentService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()
	mux.HandleFunc("POST /auth/register", rateLimiter(auth.Register))
	mux.HandleFunc("POST /auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// Public goal discovery
	mux.HandleFunc("GET /discover", goal.Discover)

	// ============================================================================
	// PROTECTED ROUTES (/app/*)
	// ============================================================================

	mux.HandleFunc("GET /app/me", middleware.RequireAuth(auth.Me))

	// Personal goals
	mux.HandleFunc("GET /app/goals", middleware.RequireAuth(goal.List))
	mux.HandleFunc("POST /app/goals", middleware.RequireAuth(goal.Create))
	mux.HandleFunc("GET /app/goals/{id}", middleware.RequireAuth(goal.Get))
	mux.HandleFunc("PUT /app/goals/{id}", middleware.RequireAuth(goal.Update))
	mux.HandleFunc("DELETE /app/goals/{id}", middleware.RequireAuth(goal.Delete))
	mux.HandleFunc("POST /app/goals/{id}/progress", middleware.RequireAuth(goal.AddProgress))

	// Groups
	mux.HandleFunc("GET /app/groups", middleware.RequireAuth(group.List))
	mux.HandleFunc("POST /app/groups", middleware.RequireAuth(group.Create))
	mux.HandleFunc("POST /app/groups/join", middleware.RequireAuth(group.Join))
	mux.HandleFunc("GET /app/groups/{id}", middleware.RequireAuth(group.Get))
	mux.HandleFunc("DELETE /app/groups/{id}", middleware.RequireAuth(group.Delete))
	mux.HandleFunc("POST /app/groups/{id}/leave", middleware.RequireAuth(group.Leave))
	mux.HandleFunc("GET /app/groups/{id}/invite-qr", middleware.RequireAuth(group.InviteQR))
	mux.HandleFunc("GET /app/groups/{id}/events", middleware.RequireAuth(group.Events))

	// Group goals and periods
	mux.HandleFunc("GET /app/groups/{id}/goals", middleware.RequireAuth(groupGoal.List))
	mux.HandleFunc("POST /app/groups/{id}/goals", middleware.RequireAuth(groupGoal.Create))
	mux.HandleFunc("POST /app/group-goals/{id}/deactivate", middleware.RequireAuth(groupGoal.Deactivate))
	mux.HandleFunc("GET /app/group-goals/{id}/period", middleware.RequireAuth(groupGoal.CurrentPeriod))
	mux.HandleFunc("PUT /app/periods/{id}/target", middleware.RequireAuth(groupGoal.SetTarget))
	mux.HandleFunc("POST /app/periods/{id}/progress", middleware.RequireAuth(groupGoal.AddProgress))

	// Billing
	mux.HandleFunc("GET /app/billing", middleware.RequireAuth(billing.Subscription))
	mux.HandleFunc("POST /app/billing/checkout", middleware.RequireAuth(billing.Checkout))
	mux.HandleFunc("GET /app/billing/portal", middleware.RequireAuth(billing.Portal))

	// ============================================================================
	// WEBHOOKS
	// ============================================================================

	// Payment provider webhook (works with both Polar and Stripe)
	mux.HandleFunc("POST /webhooks/payment", billing.Webhook)

	// Global middleware chain
	apiLimiter := middleware.NewRateLimiter(app.Cfg.RateLimitRequests, app.Cfg.RateLimitWindow)
	return middleware.Chain(mux,
		middleware.RequestLogging,
		middleware.RateLimit(apiLimiter),
		middleware.AuthMiddleware(app.AuthService, app.UserRepository, app.SubscriptionService),
	)
}
