package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/api/internal/config"
	"github.com/taskhub/api/internal/domain/task"
	"github.com/taskhub/api/internal/http/middlewares"
	"github.com/taskhub/api/internal/utils"
)

type TaskStore interface {
	Create(ctx context.Context, userID string, req task.CreateRequest) (task.Task, error)
	List(ctx context.Context, userID string, filter task.ListFilter) ([]task.Task, int, error)
	GetByID(ctx context.Context, taskID, userID string) (task.Task, error)
	Update(ctx context.Context, taskID, userID string, req task.UpdateRequest) (task.Task, error)
	Delete(ctx context.Context, taskID, userID string) error
	Statistics(ctx context.Context, userID string) (task.Statistics, error)
}

type TasksHandler struct {
	repo TaskStore
}

func NewTasksHandler(repo TaskStore) *TasksHandler {
	return &TasksHandler{repo: repo}
}

type listTasksQuery struct {
	Status   *string `form:"status" binding:"omitempty,oneof=pending in-progress completed"`
	Priority *string `form:"priority" binding:"omitempty,oneof=low medium high"`
	Limit    int     `form:"limit,default=50" binding:"min=1,max=100"`
	Offset   int     `form:"offset" binding:"min=0"`
}

// owner pulls the authenticated identity; the Required auth gate has
// already run on every task route.
func owner(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnauthorized(ctx, "AUTHENTICATION_REQUIRED", "Authentication required")
		return "", false
	}

	return userID, true
}

func taskIDParam(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondValidationError(ctx, "Invalid task id", gin.H{"fields": []FieldError{
			{Field: "id", Rule: "uuid", Message: validationMessage("uuid", "")},
		}})
		return "", false
	}

	return id, true
}

func (h *TasksHandler) Create(ctx *gin.Context) {
	userID, ok := owner(ctx)

	if !ok {
		return
	}

	var req task.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.DueDate != nil && req.DueDate.Before(time.Now()) {
		RespondValidationError(ctx, "Invalid request body", gin.H{"fields": []FieldError{
			{Field: "dueDate", Rule: "future", Message: "cannot be in the past"},
		}})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	t, err := h.repo.Create(cctx, userID, req)

	if err != nil {
		RespondInternal(ctx, "Could not create task")
		return
	}

	RespondCreated(ctx, "Task created successfully", gin.H{"task": t})
}

func (h *TasksHandler) List(ctx *gin.Context) {
	userID, ok := owner(ctx)

	if !ok {
		return
	}

	var q listTasksQuery

	if !BindQuery(ctx, &q) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	tasks, total, err := h.repo.List(cctx, userID, task.ListFilter{
		Status:   q.Status,
		Priority: q.Priority,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})

	if err != nil {
		RespondInternal(ctx, "Could not retrieve tasks")
		return
	}

	RespondOK(ctx, "Tasks retrieved successfully", gin.H{
		"tasks": tasks,
		"pagination": task.Pagination{
			Total:   total,
			Limit:   q.Limit,
			Offset:  q.Offset,
			HasMore: q.Offset+q.Limit < total,
		},
	})
}

func (h *TasksHandler) GetByID(ctx *gin.Context) {
	userID, ok := owner(ctx)

	if !ok {
		return
	}

	taskID, ok := taskIDParam(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	t, err := h.repo.GetByID(cctx, taskID, userID)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "TASK_NOT_FOUND", "Task not found")
			return
		}

		RespondInternal(ctx, "Could not retrieve task")
		return
	}

	RespondOK(ctx, "Task retrieved successfully", gin.H{"task": t})
}

func (h *TasksHandler) Update(ctx *gin.Context) {
	userID, ok := owner(ctx)

	if !ok {
		return
	}

	taskID, ok := taskIDParam(ctx)

	if !ok {
		return
	}

	var req task.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	t, err := h.repo.Update(cctx, taskID, userID, req)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "TASK_NOT_FOUND", "Task not found")
			return
		}

		RespondInternal(ctx, "Could not update task")
		return
	}

	RespondOK(ctx, "Task updated successfully", gin.H{"task": t})
}

func (h *TasksHandler) Delete(ctx *gin.Context) {
	userID, ok := owner(ctx)

	if !ok {
		return
	}

	taskID, ok := taskIDParam(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err := h.repo.Delete(cctx, taskID, userID)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "TASK_NOT_FOUND", "Task not found")
			return
		}

		RespondInternal(ctx, "Could not delete task")
		return
	}

	RespondOK(ctx, "Task deleted successfully", nil)
}

func (h *TasksHandler) Statistics(ctx *gin.Context) {
	userID, ok := owner(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	stats, err := h.repo.Statistics(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not retrieve task statistics")
		return
	}

	RespondOK(ctx, "Task statistics retrieved successfully", gin.H{"statistics": stats})
}
