package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/repository"
)

var (
	ErrGroupLimitReached = errors.New("plan group limit reached, upgrade to create more groups")
	ErrGroupFull         = errors.New("group is full")
	ErrAlreadyMember     = errors.New("already a member of this group")
	ErrOwnerCannotLeave  = errors.New("transfer ownership or delete the group instead of leaving")
	ErrNotGroupOwner     = errors.New("requires group owner role")
)

// inviteCodeRetries bounds retries on the rare invite-code collision.
const inviteCodeRetries = 3

const defaultMaxMembers = 10

type GroupService struct {
	repo       repository.GroupRepository
	memberRepo repository.GroupMemberRepository
	subService *SubscriptionService
}

func NewGroupService(
	repo repository.GroupRepository,
	memberRepo repository.GroupMemberRepository,
	subService *SubscriptionService,
) *GroupService {
	return &GroupService{
		repo:       repo,
		memberRepo: memberRepo,
		subService: subService,
	}
}

type CreateGroupInput struct {
	Name        string
	Description string
	MaxMembers  int
	IsPrivate   bool
}

// Create makes a new group with the creator as its owner. Group creation is a
// paid feature; the plan's group limit is checked against groups the user
// already created.
func (s *GroupService) Create(userID string, in CreateGroupInput, now time.Time) (*model.Group, error) {
	subscription, err := s.subService.Subscription(userID)
	if err != nil {
		return nil, err
	}

	limit := subscription.GroupLimit()
	if limit != -1 {
		count, err := s.repo.CountCreated(userID)
		if err != nil {
			return nil, err
		}

		if count >= limit {
			return nil, ErrGroupLimitReached
		}
	}

	maxMembers := in.MaxMembers
	if maxMembers <= 0 {
		maxMembers = defaultMaxMembers
	}

	var group *model.Group
	for attempt := 0; attempt < inviteCodeRetries; attempt++ {
		group = &model.Group{
			ID:          uuid.New().String(),
			Name:        in.Name,
			Description: in.Description,
			InviteCode:  model.NewInviteCode(),
			MaxMembers:  maxMembers,
			IsPrivate:   in.IsPrivate,
			Status:      model.GroupStatusActive,
			CreatedBy:   userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err = s.repo.Create(group)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	owner := &model.GroupMember{
		ID:        uuid.New().String(),
		GroupID:   group.ID,
		UserID:    userID,
		Role:      model.GroupRoleOwner,
		JoinedAt:  now,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.memberRepo.Create(owner)
	if err != nil {
		return nil, fmt.Errorf("failed to add group owner: %w", err)
	}

	return group, nil
}

func (s *GroupService) ByID(groupID string) (*model.Group, error) {
	return s.repo.ByID(groupID)
}

func (s *GroupService) GroupsForUser(userID string) ([]*model.Group, error) {
	return s.repo.GroupsForUser(userID)
}

func (s *GroupService) Members(groupID string) ([]*model.GroupMember, error) {
	return s.memberRepo.Members(groupID)
}

// Join adds the user to the group behind an invite code. A member who left
// earlier is reactivated with their old role rather than re-created.
func (s *GroupService) Join(userID, inviteCode string, now time.Time) (*model.Group, error) {
	group, err := s.repo.ByInviteCode(inviteCode)
	if err != nil {
		return nil, err
	}

	existing, err := s.memberRepo.ByGroupAndUser(group.ID, userID)
	if err != nil && err != repository.ErrMemberNotFound {
		return nil, err
	}

	if existing != nil && existing.IsActive {
		return nil, ErrAlreadyMember
	}

	count, err := s.memberRepo.CountActive(group.ID)
	if err != nil {
		return nil, err
	}
	if count >= group.MaxMembers {
		return nil, ErrGroupFull
	}

	if existing != nil {
		existing.IsActive = true
		existing.UpdatedAt = now
		err = s.memberRepo.Update(existing)
		if err != nil {
			return nil, fmt.Errorf("failed to rejoin group: %w", err)
		}
		return group, nil
	}

	member := &model.GroupMember{
		ID:        uuid.New().String(),
		GroupID:   group.ID,
		UserID:    userID,
		Role:      model.GroupRoleMember,
		JoinedAt:  now,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.memberRepo.Create(member)
	if err != nil {
		return nil, fmt.Errorf("failed to join group: %w", err)
	}

	return group, nil
}

// Leave deactivates the membership. The owner cannot leave; a group without an
// owner would be unmanageable.
func (s *GroupService) Leave(userID, groupID string, now time.Time) error {
	member, err := s.memberRepo.ByGroupAndUser(groupID, userID)
	if err == repository.ErrMemberNotFound {
		return ErrNotGroupMember
	}
	if err != nil {
		return err
	}
	if !member.IsActive {
		return ErrNotGroupMember
	}
	if member.IsOwner() {
		return ErrOwnerCannotLeave
	}

	member.IsActive = false
	member.UpdatedAt = now
	return s.memberRepo.Update(member)
}

// Delete removes the group and everything under it. Owner only.
func (s *GroupService) Delete(userID, groupID string) error {
	member, err := s.memberRepo.ByGroupAndUser(groupID, userID)
	if err == repository.ErrMemberNotFound {
		return ErrNotGroupMember
	}
	if err != nil {
		return err
	}
	if !member.IsOwner() {
		return ErrNotGroupOwner
	}

	return s.repo.Delete(groupID)
}

// InviteQR renders the group's join link as a PNG QR code. Members only; the
// invite code is the group's bearer credential.
func (s *GroupService) InviteQR(userID, groupID, baseURL string) ([]byte, error) {
	member, err := s.memberRepo.ByGroupAndUser(groupID, userID)
	if err == repository.ErrMemberNotFound {
		return nil, ErrNotGroupMember
	}
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, ErrNotGroupMember
	}

	group, err := s.repo.ByID(groupID)
	if err != nil {
		return nil, err
	}

	joinURL := fmt.Sprintf("%s/join/%s", baseURL, group.InviteCode)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render invite QR: %w", err)
	}

	return png, nil
}
