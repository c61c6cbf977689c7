package api

import "filemanager/internal/review"

// FromResult converts an executor result to its wire form.
func FromResult(result review.Result) ActionResponse {
	if result.Success {
		return ActionResponse{Success: true, Message: result.Message}
	}
	return ActionResponse{Success: false, Error: result.Reason, Kind: string(result.Kind)}
}

// FromBulkResult converts a bulk result to its wire form.
func FromBulkResult(result review.BulkResult) BulkResponse {
	return BulkResponse{
		Success:  result.Success,
		Count:    result.Count,
		Message:  result.Message,
		Error:    result.Error,
		FailedID: result.FailedID,
	}
}
