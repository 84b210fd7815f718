package task

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(userID string, req CreateRequest) Task {
	now := time.Now().UTC()

	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}

	return Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      status,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
