package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainforge/chainforge/internal/ctxkeys"
	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/service"
)

type GroupGoalHandler struct {
	groupGoalService *service.GroupGoalService
}

func NewGroupGoalHandler(groupGoalService *service.GroupGoalService) *GroupGoalHandler {
	return &GroupGoalHandler{groupGoalService: groupGoalService}
}

type createGroupGoalRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Unit        string `json:"unit" validate:"required"`
	PeriodType  string `json:"period_type" validate:"required,oneof=weekly monthly"`
}

func (h *GroupGoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	groupID := r.PathValue("id")

	var req createGroupGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	goal, err := h.groupGoalService.Create(user.ID, groupID, req.Name, req.Description, req.Unit, req.PeriodType, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, goal)
}

func (h *GroupGoalHandler) List(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")

	goals, err := h.groupGoalService.GoalsByGroup(groupID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, goals)
}

func (h *GroupGoalHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	err := h.groupGoalService.Deactivate(user.ID, goalID, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// CurrentPeriod returns the goal's open period together with the standings of
// every participant in it.
func (h *GroupGoalHandler) CurrentPeriod(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	period, err := h.groupGoalService.CurrentPeriod(goalID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	standings, err := h.groupGoalService.PeriodStandings(period.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"period":    period,
		"standings": standings,
	})
}

type setTargetRequest struct {
	Target decimal.Decimal `json:"target" validate:"required"`
}

func (h *GroupGoalHandler) SetTarget(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	periodID := r.PathValue("id")

	var req setTargetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	progress, err := h.groupGoalService.SetTarget(user.ID, periodID, req.Target, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

type addGroupProgressRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Date   string          `json:"date" validate:"required"`
}

func (h *GroupGoalHandler) AddProgress(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	periodID := r.PathValue("id")

	var req addGroupProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := time.Parse(model.DateLayout, req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	progress, err := h.groupGoalService.AddProgress(user.ID, periodID, req.Amount, date, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, progress)
}
