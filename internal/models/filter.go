package models

import "time"

// HistoryFilter is the date window shared by historical enrollment, grade
// and attendance queries. Bounds are inclusive.
type HistoryFilter struct {
	From *time.Time
	To   *time.Time
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// BulkItemResult is the outcome of one item in a batch operation.
type BulkItemResult struct {
	Index     int         `json:"index"`
	StudentID string      `json:"student_id"`
	Success   bool        `json:"success"`
	Code      string      `json:"code,omitempty"`
	Error     string      `json:"error,omitempty"`
	Record    interface{} `json:"record,omitempty"`
}

// BulkResult aggregates per-item outcomes.
type BulkResult struct {
	Processed int              `json:"processed"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []BulkItemResult `json:"items"`
}

// Add records an item outcome and updates the counters.
func (r *BulkResult) Add(item BulkItemResult) {
	r.Processed++
	if item.Success {
		r.Succeeded++
	} else {
		r.Failed++
	}
	r.Items = append(r.Items, item)
}
