package domain

import "time"

// FailedPair is a key that hit a retryable failure and is waiting for the
// next run.
type FailedPair struct {
	ID          string           `json:"id"`
	Job         string           `json:"job"`
	Key         string           `json:"key"`
	FailureType FailureType      `json:"failure_type"`
	Error       string           `json:"error_msg"`
	RetryCount  int              `json:"retry_count"`
	Status      FailedPairStatus `json:"status"`
	LastAttempt time.Time        `json:"last_attempt"`
	CreatedAt   time.Time        `json:"created_at"`
}

type FailedPairStatus string

const (
	FailedPairStatusPending  FailedPairStatus = "pending"
	FailedPairStatusResolved FailedPairStatus = "resolved"
)

type FailureType string

const (
	FailureTypeNetwork   FailureType = "network"
	FailureTypeMalformed FailureType = "malformed"
	FailureTypeStorage   FailureType = "storage"
)
