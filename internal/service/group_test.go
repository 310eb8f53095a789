package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainforge/chainforge/internal/model"
	"github.com/chainforge/chainforge/internal/repository"
)

func TestGroupCreateRequiresPaidPlan(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "free@example.com")
	now := day(t, "2026-03-01")

	_, err := f.groups.Create(user.ID, CreateGroupInput{Name: "No Dice"}, now)
	assert.ErrorIs(t, err, ErrGroupLimitReached)
}

func TestGroupCreateAddsOwnerMember(t *testing.T) {
	f := newFixture(t)
	now := day(t, "2026-03-01")

	group, owner := f.createGroup(t, "owner@example.com", now)
	assert.Len(t, group.InviteCode, 8)

	member, err := f.memberRepo.ByGroupAndUser(group.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GroupRoleOwner, member.Role)
	assert.True(t, member.IsActive)
}

func TestGroupJoinByInviteCode(t *testing.T) {
	f := newFixture(t)
	now := day(t, "2026-03-01")

	group, _ := f.createGroup(t, "owner@example.com", now)
	user := f.createUser(t, "joiner@example.com")

	joined, err := f.groups.Join(user.ID, group.InviteCode, now)
	require.NoError(t, err)
	assert.Equal(t, group.ID, joined.ID)

	// Joining twice is rejected, not duplicated.
	_, err = f.groups.Join(user.ID, group.InviteCode, now)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestGroupJoinUnknownCode(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "lost@example.com")

	_, err := f.groups.Join(user.ID, "NOPE1234", day(t, "2026-03-01"))
	assert.ErrorIs(t, err, repository.ErrGroupNotFound)
}

func TestGroupJoinFull(t *testing.T) {
	f := newFixture(t)
	now := day(t, "2026-03-01")

	owner := f.createUser(t, "owner@example.com")
	f.upgradeToPremium(t, owner.ID)

	group, err := f.groups.Create(owner.ID, CreateGroupInput{
		Name:       "Tiny",
		MaxMembers: 2,
	}, now)
	require.NoError(t, err)

	f.joinGroup(t, group, "second@example.com", now)

	third := f.createUser(t, "third@example.com")
	_, err = f.groups.Join(third.ID, group.InviteCode, now)
	assert.ErrorIs(t, err, ErrGroupFull)
}

func TestGroupLeaveAndRejoinKeepsOneMembership(t *testing.T) {
	f := newFixture(t)
	now := day(t, "2026-03-01")

	group, _ := f.createGroup(t, "owner@example.com", now)
	user := f.joinGroup(t, group, "flaky@example.com", now)

	require.NoError(t, f.groups.Leave(user.ID, group.ID, now))

	members, err := f.groups.Members(group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	_, err = f.groups.Join(user.ID, group.InviteCode, now)
	require.NoError(t, err)

	members, err = f.groups.Members(group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestGroupOwnerCannotLeave(t *testing.T) {
	f := newFixture(t)
	now := day(t, "2026-03-01")

	group, owner := f.createGroup(t, "owner@example.com", now)

	err := f.groups.Leave(owner.ID, group.ID, now)
	assert.ErrorIs(t, err, ErrOwnerCannotLeave)
}

func TestGroupDeleteOwnerOnly(t *testing.T) {
	f := newFixture(t)
	now := day(t, "2026-03-01")

	group, owner := f.createGroup(t, "owner@example.com", now)
	member := f.joinGroup(t, group, "member@example.com", now)

	err := f.groups.Delete(member.ID, group.ID)
	assert.ErrorIs(t, err, ErrNotGroupOwner)

	require.NoError(t, f.groups.Delete(owner.ID, group.ID))

	_, err = f.groups.ByID(group.ID)
	assert.ErrorIs(t, err, repository.ErrGroupNotFound)
}

func TestGroupInviteQR(t *testing.T) {
	f := newFixture(t)
	now := day(t, "2026-03-01")

	group, owner := f.createGroup(t, "owner@example.com", now)

	png, err := f.groups.InviteQR(owner.ID, group.ID, "https://chainforge.example")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	outsider := f.createUser(t, "outsider@example.com")
	_, err = f.groups.InviteQR(outsider.ID, group.ID, "https://chainforge.example")
	assert.ErrorIs(t, err, ErrNotGroupMember)
}
