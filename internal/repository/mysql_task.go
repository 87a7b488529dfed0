package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-go/internal/model"
)

const taskColumns = `id, user_id, title, description, priority, status, due_date, created_at`

// MySQLTaskRepository handles task persistence operations on MySQL.
type MySQLTaskRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewMySQLTaskRepository creates a new MySQLTaskRepository.
func NewMySQLTaskRepository(db *sql.DB) *MySQLTaskRepository {
	return &MySQLTaskRepository{db: db, now: sqlNow}
}

// Insert assigns a UUID and creation time and stores the task.
func (r *MySQLTaskRepository) Insert(ctx context.Context, task *model.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id := uuid.NewString()
	createdAt := r.now()
	dueDate := task.DueDate.UTC().Truncate(time.Millisecond)

	_, err := r.db.ExecContext(ctx, query,
		id,
		task.OwnerID,
		task.Title,
		task.Description,
		string(task.Priority),
		string(task.Status),
		dueDate,
		createdAt,
	)
	if err != nil {
		return err
	}

	task.ID = id
	task.CreatedAt = createdAt
	task.DueDate = dueDate
	return nil
}

// ListByOwner retrieves all tasks that belong to ownerID.
func (r *MySQLTaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// UpdateByOwnerAndID applies patch to the task and returns the stored result.
func (r *MySQLTaskRepository) UpdateByOwnerAndID(ctx context.Context, ownerID, id string, patch model.TaskPatch) (*model.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTaskNotFound
	}

	if sets, args := patchToSQL(patch); len(sets) > 0 {
		query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`
		args = append(args, id, ownerID)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	t, err := scanTask(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

// DeleteByOwnerAndID permanently removes the task.
func (r *MySQLTaskRepository) DeleteByOwnerAndID(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrTaskNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected != 1 {
		return ErrTaskNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t                model.Task
		priority, status string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &priority, &status, &t.DueDate, &t.CreatedAt)
	if err != nil {
		return model.Task{}, err
	}
	t.Priority = model.Priority(priority)
	t.Status = model.Status(status)
	return t, nil
}

func patchToSQL(p model.TaskPatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*p.Priority))
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, p.DueDate.UTC().Truncate(time.Millisecond))
	}
	return sets, args
}
