package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chainforge/chainforge/internal/model"
)

var (
	ErrGroupGoalNotFound = errors.New("group goal not found")
)

type GroupGoalRepository interface {
	Create(goal *model.GroupGoal) error
	ByID(id string) (*model.GroupGoal, error)
	GoalsByGroup(groupID string) ([]*model.GroupGoal, error)
	Update(goal *model.GroupGoal) error
	Delete(id string) error
}

type groupGoalRepository struct {
	db *sqlx.DB
}

func NewGroupGoalRepository(db *sqlx.DB) GroupGoalRepository {
	return &groupGoalRepository{db: db}
}

func (r *groupGoalRepository) Create(goal *model.GroupGoal) error {
	query := `INSERT INTO group_goals (id, group_id, name, description, unit, period_type,
	                                   is_active, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		goal.ID,
		goal.GroupID,
		goal.Name,
		goal.Description,
		goal.Unit,
		goal.PeriodType,
		goal.IsActive,
		goal.CreatedBy,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *groupGoalRepository) ByID(id string) (*model.GroupGoal, error) {
	goal := &model.GroupGoal{}
	query := `SELECT * FROM group_goals WHERE id = $1`

	err := r.db.Get(goal, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrGroupGoalNotFound
	}

	return goal, err
}

func (r *groupGoalRepository) GoalsByGroup(groupID string) ([]*model.GroupGoal, error) {
	var goals []*model.GroupGoal
	query := `SELECT * FROM group_goals WHERE group_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&goals, query, groupID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *groupGoalRepository) Update(goal *model.GroupGoal) error {
	query := `UPDATE group_goals
	          SET name = $1, description = $2, unit = $3, is_active = $4, updated_at = $5
	          WHERE id = $6`

	result, err := r.db.Exec(query,
		goal.Name,
		goal.Description,
		goal.Unit,
		goal.IsActive,
		goal.UpdatedAt,
		goal.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGroupGoalNotFound
	}

	return nil
}

// Delete removes a group goal with its periods and participant progress in
// one transaction (explicit cascade, same contract as group deletion).
func (r *groupGoalRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM group_goal_progress
	                  WHERE group_goal_period_id IN (
	                      SELECT id FROM group_goal_periods WHERE group_goal_id = $1)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant progress: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM group_goal_periods WHERE group_goal_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete periods: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM group_goals WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGroupGoalNotFound
	}

	return tx.Commit()
}
