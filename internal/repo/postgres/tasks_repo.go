package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/api/internal/domain/task"
	"github.com/taskhub/api/internal/observability"
)

const taskColumns = `id, user_id, title, description, priority, status, due_date, created_at, updated_at`

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom == nil {
		return fn()
	}
	return r.prom.ObserveDB(op, fn)
}

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task
	var description *string

	err := row.Scan(&t.ID, &t.UserID, &t.Title, &description, &t.Priority, &t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		return task.Task{}, err
	}

	if description != nil {
		t.Description = *description
	}

	return t, nil
}

func (r *TasksRepo) Create(ctx context.Context, userID string, req task.CreateRequest) (task.Task, error) {
	t := task.NewFromCreateRequest(userID, req)

	var description *string
	if t.Description != "" {
		description = &t.Description
	}

	err := r.observe("tasks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks (id, user_id, title, description, priority, status, due_date, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			t.ID, t.UserID, t.Title, description, t.Priority, t.Status, t.DueDate, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

// List builds a conjunctive filter over the owner plus any supplied
// status/priority equality filters. The count runs before pagination so an
// out-of-range offset still reports the true total. Ordering by created_at
// descending is a contract; pagination correctness depends on it.
func (r *TasksRepo) List(ctx context.Context, userID string, filter task.ListFilter) ([]task.Task, int, error) {
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}

	pos := 2

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", pos))
		args = append(args, *filter.Status)
		pos++
	}

	if filter.Priority != nil {
		conds = append(conds, fmt.Sprintf("priority = $%d", pos))
		args = append(args, *filter.Priority)
		pos++
	}

	where := strings.Join(conds, " AND ")

	var total int

	err := r.observe("tasks.count", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM tasks WHERE `+where,
			args...,
		).Scan(&total)
	})

	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT %s FROM tasks WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		taskColumns, where, pos, pos+1,
	)
	args = append(args, filter.Limit, filter.Offset)

	output := make([]task.Task, 0, filter.Limit)

	err = r.observe("tasks.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)

			if err != nil {
				return err
			}

			output = append(output, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// GetByID scopes the lookup by owner, so a task belonging to someone else is
// indistinguishable from one that does not exist.
func (r *TasksRepo) GetByID(ctx context.Context, taskID, userID string) (task.Task, error) {
	var t task.Task
	found := true

	err := r.observe("tasks.get_by_id", func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
			taskID, userID,
		))

		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	if !found {
		return task.Task{}, task.ErrNotFound
	}

	return t, nil
}

// Update re-validates ownership first so cross-user attempts surface the
// same not-found as a genuinely absent id. Only whitelisted fields are ever
// interpolated into the SET clause, all values bind positionally, and the
// IS DISTINCT FROM guard keeps updated_at still when nothing really changed.
func (r *TasksRepo) Update(ctx context.Context, taskID, userID string, req task.UpdateRequest) (task.Task, error) {
	current, err := r.GetByID(ctx, taskID, userID)

	if err != nil {
		return task.Task{}, err
	}

	var sets []string
	var changed []string
	var args []interface{}

	pos := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, pos))
		changed = append(changed, fmt.Sprintf("%s IS DISTINCT FROM $%d", column, pos))
		args = append(args, value)
		pos++
	}

	if req.Title != nil {
		add("title", *req.Title)
	}

	if req.Description != nil {
		add("description", *req.Description)
	}

	if req.Priority != nil {
		add("priority", *req.Priority)
	}

	if req.Status != nil {
		add("status", *req.Status)
	}

	if req.DueDate.Set {
		// explicit null clears the due date
		add("due_date", req.DueDate.Value)
	}

	if len(sets) == 0 {
		return current, nil
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, taskID, userID)

	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d AND (%s) RETURNING %s`,
		strings.Join(sets, ", "), pos, pos+1, strings.Join(changed, " OR "), taskColumns,
	)

	var t task.Task
	applied := true

	err = r.observe("tasks.update", func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx, query, args...))

		if errors.Is(err, pgx.ErrNoRows) {
			applied = false
			return nil
		}
		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	if !applied {
		// every supplied value already matched (or the row vanished; the
		// re-fetch surfaces that as not-found)
		return r.GetByID(ctx, taskID, userID)
	}

	return t, nil
}

// Delete covers the race where the row vanished between the ownership check
// and the delete: zero rows affected is a not-found either way.
func (r *TasksRepo) Delete(ctx context.Context, taskID, userID string) error {
	if _, err := r.GetByID(ctx, taskID, userID); err != nil {
		return err
	}

	var affected int64

	err := r.observe("tasks.delete", func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
			taskID, userID,
		)

		if err != nil {
			return err
		}

		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return task.ErrNotFound
	}

	return nil
}

// Statistics aggregates in a single pass; an owner with no tasks scans one
// all-zero row, not zero rows.
func (r *TasksRepo) Statistics(ctx context.Context, userID string) (task.Statistics, error) {
	var s task.Statistics

	err := r.observe("tasks.statistics", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT
				COUNT(*),
				COUNT(CASE WHEN status = 'pending' THEN 1 END),
				COUNT(CASE WHEN status = 'in-progress' THEN 1 END),
				COUNT(CASE WHEN status = 'completed' THEN 1 END),
				COUNT(CASE WHEN priority = 'high' THEN 1 END),
				COUNT(CASE WHEN due_date < NOW() AND status != 'completed' THEN 1 END)
			 FROM tasks
			 WHERE user_id = $1`,
			userID,
		).Scan(&s.TotalTasks, &s.PendingTasks, &s.InProgressTasks, &s.CompletedTasks, &s.HighPriorityTasks, &s.OverdueTasks)
	})

	if err != nil {
		return task.Statistics{}, err
	}

	return s, nil
}
