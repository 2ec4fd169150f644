// Package scheduler implements the periodic maintenance jobs: the monthly
// usage counter reset and the commerce cache refresh. Both invoke only the
// public operations of the account service and the commerce client.
//
// MaintenancePayload is the JSON sent by EventBridge rules to the
// maintenance Lambda; Task selects the job.
package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"commercekit/internal/types"
)

// TaskType identifies a maintenance job.
type TaskType string

const (
	TaskResetUsage      TaskType = "reset_usage"
	TaskRefreshCommerce TaskType = "refresh_commerce_cache"
	TaskClearCommerce   TaskType = "clear_commerce_cache"
)

// Tasks lists every known task.
var Tasks = []TaskType{TaskResetUsage, TaskRefreshCommerce, TaskClearCommerce}

// Valid reports whether t is a known task.
func (t TaskType) Valid() bool {
	for _, k := range Tasks {
		if t == k {
			return true
		}
	}
	return false
}

// MaintenancePayload is the event body for a maintenance invocation.
//
//	{
//	  "task": "reset_usage",
//	  "reference_time": "2026-03-01T00:05:00Z",  // optional
//	  "force": false                             // optional
//	}
type MaintenancePayload struct {
	Task TaskType `json:"task"`
	// ReferenceTime overrides "now" for manual runs and backfills.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
	// Force runs date-gated tasks outside their window.
	Force bool `json:"force,omitempty"`
}

// ParsePayload decodes and validates a maintenance event body.
func ParsePayload(raw []byte) (MaintenancePayload, error) {
	var p MaintenancePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, types.NewAppError(types.ErrCodeValidationInvalidPayload, "malformed maintenance payload", err)
	}
	if !p.Task.Valid() {
		return p, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidTask,
			fmt.Sprintf("unknown task %q", p.Task), nil,
			map[string]any{"task": p.Task, "allowed": Tasks})
	}
	return p, nil
}
