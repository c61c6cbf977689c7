package queue

import "errors"

// ErrMalformedDocument reports a persisted document that cannot be decoded or
// fails validation. It is not recoverable by retrying.
var ErrMalformedDocument = errors.New("malformed document")

// ErrInvalidEntry reports an entry missing required fields or carrying an
// unknown status or action.
var ErrInvalidEntry = errors.New("invalid entry")

// ErrDuplicateID reports two entries sharing an id.
var ErrDuplicateID = errors.New("duplicate entry id")
