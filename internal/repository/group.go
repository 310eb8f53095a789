package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chainforge/chainforge/internal/model"
)

var (
	ErrGroupNotFound = errors.New("group not found")
)

type GroupRepository interface {
	Create(group *model.Group) error
	ByID(id string) (*model.Group, error)
	ByInviteCode(code string) (*model.Group, error)
	GroupsForUser(userID string) ([]*model.Group, error)
	CountCreated(userID string) (int, error)
	Update(group *model.Group) error
	Delete(id string) error
}

type groupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(group *model.Group) error {
	query := `INSERT INTO groups (id, name, description, invite_code, max_members, is_private,
	                              status, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		group.ID,
		group.Name,
		group.Description,
		group.InviteCode,
		group.MaxMembers,
		group.IsPrivate,
		group.Status,
		group.CreatedBy,
		group.CreatedAt,
		group.UpdatedAt,
	)

	return err
}

func (r *groupRepository) ByID(id string) (*model.Group, error) {
	group := &model.Group{}
	query := `SELECT * FROM groups WHERE id = $1`

	err := r.db.Get(group, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrGroupNotFound
	}

	return group, err
}

func (r *groupRepository) ByInviteCode(code string) (*model.Group, error) {
	group := &model.Group{}
	query := `SELECT * FROM groups WHERE invite_code = $1 AND status = $2`

	err := r.db.Get(group, query, code, model.GroupStatusActive)
	if err == sql.ErrNoRows {
		return nil, ErrGroupNotFound
	}

	return group, err
}

func (r *groupRepository) GroupsForUser(userID string) ([]*model.Group, error) {
	var groups []*model.Group
	query := `SELECT g.* FROM groups g
	          JOIN group_members m ON m.group_id = g.id
	          WHERE m.user_id = $1 AND m.is_active = TRUE
	          ORDER BY g.created_at DESC`

	err := r.db.Select(&groups, query, userID)
	if err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *groupRepository) CountCreated(userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM groups WHERE created_by = $1 AND status = $2`
	err := r.db.QueryRow(query, userID, model.GroupStatusActive).Scan(&count)
	return count, err
}

func (r *groupRepository) Update(group *model.Group) error {
	query := `UPDATE groups
	          SET name = $1, description = $2, max_members = $3, is_private = $4,
	              status = $5, updated_at = $6
	          WHERE id = $7`

	result, err := r.db.Exec(query,
		group.Name,
		group.Description,
		group.MaxMembers,
		group.IsPrivate,
		group.Status,
		group.UpdatedAt,
		group.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGroupNotFound
	}

	return nil
}

// Delete removes a group together with its memberships, goals, periods and
// participant progress in one transaction. The cascade chain is explicit so
// the ownership contract (group owns goals, goals own periods, periods own
// progress) lives in code rather than in database triggers.
func (r *groupRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM group_goal_progress
	                  WHERE group_goal_period_id IN (
	                      SELECT p.id FROM group_goal_periods p
	                      JOIN group_goals gg ON gg.id = p.group_goal_id
	                      WHERE gg.group_id = $1)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant progress: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM group_goal_periods
	                  WHERE group_goal_id IN (SELECT id FROM group_goals WHERE group_id = $1)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete periods: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM group_goals WHERE group_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group goals: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM group_members WHERE group_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group members: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGroupNotFound
	}

	return tx.Commit()
}
