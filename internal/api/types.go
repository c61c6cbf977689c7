package api

import (
	"filemanager/internal/journal"
	"filemanager/internal/queue"
)

// UpdateStatusRequest is the body of POST /api/update-status.
type UpdateStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// EntryRequest is the body of POST /api/move-file and /api/skip-file.
type EntryRequest struct {
	ID string `json:"id"`
}

// BulkRequest is the body of POST /api/bulk-execute.
type BulkRequest struct {
	IDs       []string `json:"ids"`
	Operation string   `json:"operation"`
}

// ReplaceQueueRequest is the body of POST /api/replace-queue.
type ReplaceQueueRequest struct {
	Files []queue.Entry `json:"files"`
}

// SuccessResponse acknowledges a request with no further payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse reports a rejected request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ActionResponse reports a single transition.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// BulkResponse reports a bulk execution.
type BulkResponse struct {
	Success  bool   `json:"success"`
	Count    int    `json:"count"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	FailedID string `json:"failed_id,omitempty"`
}

// DirectoryFile is one regular file in a listing.
type DirectoryFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// DirectoryListing is the response of GET /api/list-directory.
type DirectoryListing struct {
	Success    bool            `json:"success"`
	Directory  string          `json:"directory"`
	Files      []DirectoryFile `json:"files"`
	TotalCount int             `json:"total_count"`
	Error      string          `json:"error,omitempty"`
}

// JournalResponse is the response of GET /api/journal.
type JournalResponse struct {
	Records []journal.Record `json:"records"`
}
