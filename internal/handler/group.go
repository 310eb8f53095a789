package handler

import (
	"net/http"
	"time"

	"github.com/chainforge/chainforge/internal/ctxkeys"
	"github.com/chainforge/chainforge/internal/realtime"
	"github.com/chainforge/chainforge/internal/repository"
	"github.com/chainforge/chainforge/internal/service"
)

type GroupHandler struct {
	groupService *service.GroupService
	memberRepo   repository.GroupMemberRepository
	hub          *realtime.Hub
	appURL       string
}

func NewGroupHandler(groupService *service.GroupService, memberRepo repository.GroupMemberRepository, hub *realtime.Hub, appURL string) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		memberRepo:   memberRepo,
		hub:          hub,
		appURL:       appURL,
	}
}

type createGroupRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	MaxMembers  int    `json:"max_members"`
	IsPrivate   bool   `json:"is_private"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req createGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.Create(user.ID, service.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		MaxMembers:  req.MaxMembers,
		IsPrivate:   req.IsPrivate,
	}, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	groups, err := h.groupService.GroupsForUser(user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	groupID := r.PathValue("id")

	if !h.requireMember(w, groupID, user.ID) {
		return
	}

	group, err := h.groupService.ByID(groupID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	members, err := h.groupService.Members(groupID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"group":   group,
		"members": members,
	})
}

type joinGroupRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req joinGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.Join(user.ID, req.InviteCode, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	groupID := r.PathValue("id")

	err := h.groupService.Leave(user.ID, groupID, time.Now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	groupID := r.PathValue("id")

	err := h.groupService.Delete(user.ID, groupID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// InviteQR serves the group's join link as a PNG QR code.
func (h *GroupHandler) InviteQR(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	groupID := r.PathValue("id")

	png, err := h.groupService.InviteQR(user.ID, groupID, h.appURL)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Events upgrades to a websocket and streams the group's progress events.
func (h *GroupHandler) Events(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	groupID := r.PathValue("id")

	if !h.requireMember(w, groupID, user.ID) {
		return
	}

	h.hub.Subscribe(w, r, groupID)
}

func (h *GroupHandler) requireMember(w http.ResponseWriter, groupID, userID string) bool {
	member, err := h.memberRepo.ByGroupAndUser(groupID, userID)
	if err != nil || !member.IsActive {
		respondError(w, http.StatusForbidden, service.ErrNotGroupMember.Error())
		return false
	}
	return true
}
