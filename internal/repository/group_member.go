package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/chainforge/chainforge/internal/model"
)

var (
	ErrMemberNotFound = errors.New("group member not found")
)

type GroupMemberRepository interface {
	Create(member *model.GroupMember) error
	ByGroupAndUser(groupID, userID string) (*model.GroupMember, error)
	Members(groupID string) ([]*model.GroupMember, error)
	CountActive(groupID string) (int, error)
	Update(member *model.GroupMember) error
}

type groupMemberRepository struct {
	db *sqlx.DB
}

func NewGroupMemberRepository(db *sqlx.DB) GroupMemberRepository {
	return &groupMemberRepository{db: db}
}

func (r *groupMemberRepository) Create(member *model.GroupMember) error {
	query := `INSERT INTO group_members (id, group_id, user_id, role, joined_at, is_active,
	                                     created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		member.ID,
		member.GroupID,
		member.UserID,
		member.Role,
		member.JoinedAt,
		member.IsActive,
		member.CreatedAt,
		member.UpdatedAt,
	)

	return err
}

func (r *groupMemberRepository) ByGroupAndUser(groupID, userID string) (*model.GroupMember, error) {
	member := &model.GroupMember{}
	query := `SELECT * FROM group_members WHERE group_id = $1 AND user_id = $2`

	err := r.db.Get(member, query, groupID, userID)
	if err == sql.ErrNoRows {
		return nil, ErrMemberNotFound
	}

	return member, err
}

func (r *groupMemberRepository) Members(groupID string) ([]*model.GroupMember, error) {
	var members []*model.GroupMember
	query := `SELECT * FROM group_members WHERE group_id = $1 AND is_active = TRUE ORDER BY joined_at ASC`

	err := r.db.Select(&members, query, groupID)
	if err != nil {
		return nil, err
	}

	return members, nil
}

func (r *groupMemberRepository) CountActive(groupID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND is_active = TRUE`
	err := r.db.QueryRow(query, groupID).Scan(&count)
	return count, err
}

func (r *groupMemberRepository) Update(member *model.GroupMember) error {
	query := `UPDATE group_members
	          SET role = $1, is_active = $2, updated_at = $3
	          WHERE id = $4`

	result, err := r.db.Exec(query,
		member.Role,
		member.IsActive,
		member.UpdatedAt,
		member.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrMemberNotFound
	}

	return nil
}
