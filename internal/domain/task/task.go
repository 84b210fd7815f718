package task

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("task not found")

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CreateRequest struct {
	Title       string     `json:"title" binding:"required,min=1,max=255"`
	Description string     `json:"description" binding:"omitempty,max=2000"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      string     `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateRequest distinguishes absent fields (nil pointer, left untouched)
// from explicit nulls; only dueDate is clearable, hence NullableTime.
type UpdateRequest struct {
	Title       *string      `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string      `json:"description" binding:"omitempty,max=2000"`
	Priority    *string      `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      *string      `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	DueDate     NullableTime `json:"dueDate"`
}

func (r UpdateRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Priority == nil &&
		r.Status == nil && !r.DueDate.Set
}

type ListFilter struct {
	Status   *string
	Priority *string
	Limit    int
	Offset   int
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

type Statistics struct {
	TotalTasks        int `json:"totalTasks"`
	PendingTasks      int `json:"pendingTasks"`
	InProgressTasks   int `json:"inProgressTasks"`
	CompletedTasks    int `json:"completedTasks"`
	HighPriorityTasks int `json:"highPriorityTasks"`
	OverdueTasks      int `json:"overdueTasks"`
}
