package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainforge/chainforge/internal/ctxkeys"
	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/service"
)

type GoalHandler struct {
	goalService *service.GoalService
}

func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
	}
}

type createGoalRequest struct {
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	TargetAmount decimal.Decimal `json:"target_amount" validate:"required"`
	Unit         string          `json:"unit" validate:"required"`
	Category     string          `json:"category" validate:"required"`
	EndDate      *string         `json:"end_date"`
	Punishment   string          `json:"punishment"`
	IsPublic     bool            `json:"is_public"`
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req createGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	endDate, ok := parseOptionalDate(w, req.EndDate)
	if !ok {
		return
	}

	goal, err := h.goalService.Create(user.ID, service.CreateGoalInput{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		Unit:         req.Unit,
		Category:     req.Category,
		EndDate:      endDate,
		Punishment:   req.Punishment,
		IsPublic:     req.IsPublic,
	}, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	goals, err := h.goalService.Goals(user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Discover(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	goals, err := h.goalService.Discover(limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	goal, entries, err := h.goalService.GoalWithEntries(user.ID, goalID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"goal":    goal,
		"entries": entries,
	})
}

type addProgressRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Note   string          `json:"note"`
	Date   string          `json:"date" validate:"required"`
}

func (h *GoalHandler) AddProgress(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	var req addProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := time.Parse(model.DateLayout, req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	goal, err := h.goalService.AddProgress(user.ID, goalID, req.Amount, req.Note, date, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, goal)
}

type updateGoalRequest struct {
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	TargetAmount decimal.Decimal `json:"target_amount" validate:"required"`
	Unit         string          `json:"unit" validate:"required"`
	Category     string          `json:"category" validate:"required"`
	EndDate      *string         `json:"end_date"`
	Punishment   string          `json:"punishment"`
	IsPublic     bool            `json:"is_public"`
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	var req updateGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	endDate, ok := parseOptionalDate(w, req.EndDate)
	if !ok {
		return
	}

	goal, err := h.goalService.Update(user.ID, goalID, service.UpdateGoalInput{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		Unit:         req.Unit,
		Category:     req.Category,
		EndDate:      endDate,
		Punishment:   req.Punishment,
		IsPublic:     req.IsPublic,
	}, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	err := h.goalService.Delete(user.ID, goalID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func parseOptionalDate(w http.ResponseWriter, value *string) (*time.Time, bool) {
	if value == nil || *value == "" {
		return nil, true
	}

	date, err := time.Parse(model.DateLayout, *value)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return nil, false
	}

	return &date, true
}
