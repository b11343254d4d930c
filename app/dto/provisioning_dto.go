package dto

import "time"

// ProvisionNumberResponse acknowledges that provisioning was queued
type ProvisionNumberResponse struct {
	NumberUUID string `json:"number_uuid"` // Number the task targets
	TaskUUID   string `json:"task_uuid"`   // Queue entry identifier
	Status     string `json:"status"`      // Number status after enqueue
	Queued     bool   `json:"queued"`      // False when an open task already existed
}

// RequeueNumberRequest represents an operator retry of a failed number
type RequeueNumberRequest struct {
	NumberUUID string `json:"number_uuid" validate:"required,uuid"` // Failed number to retry
}

// QueueStatsResponse reports provisioning queue depth by status
type QueueStatsResponse struct {
	Queued     int64 `json:"queued"`      // Entries waiting for a worker
	InProgress int64 `json:"in_progress"` // Entries claimed by a worker
	Completed  int64 `json:"completed"`   // Finished entries
	Failed     int64 `json:"failed"`      // Entries that ended in failure
}

// FailedTaskDTO represents one failed queue entry in operator listings
type FailedTaskDTO struct {
	TaskUUID      string     `json:"task_uuid"`                // Queue entry identifier
	NumberUUID    string     `json:"number_uuid"`              // Target number
	PhoneNumber   string     `json:"phone_number"`             // Target number's digits
	FailureReason string     `json:"failure_reason,omitempty"` // Why the attempt failed
	CreatedAt     time.Time  `json:"created_at"`               // When the task was enqueued
	FinishedAt    *time.Time `json:"finished_at,omitempty"`    // When the attempt ended
}

// ListFailedTasksResponse represents a page of failed queue entries
type ListFailedTasksResponse struct {
	Tasks      []FailedTaskDTO `json:"tasks"`      // Failed entries, newest first
	Pagination PaginationInfo  `json:"pagination"` // Pagination information
}
