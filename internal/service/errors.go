package service

import (
	"errors"
	"fmt"
)

var (
	ErrSyncInProgress         = errors.New("chatflow sync already in progress")
	ErrSuspiciousEmptyCatalog = errors.New("provider returned an empty catalog while the local mirror is not empty")
	ErrChatflowNotEntitled    = errors.New("chatflow not available to caller")
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionInactive        = errors.New("session is no longer active")
	ErrUploadTooLarge         = errors.New("upload exceeds size limit")
	ErrUploadInvalid          = errors.New("upload payload is invalid")
)

// ReconcileFetchError means no catalog snapshot could be obtained. No local
// mutation was applied.
type ReconcileFetchError struct {
	Err error
}

func (e *ReconcileFetchError) Error() string {
	return fmt.Sprintf("fetch chatflow catalog: %v", e.Err)
}

func (e *ReconcileFetchError) Unwrap() error {
	return e.Err
}

// ReconcileItemError is one failed create, update or delete.
type ReconcileItemError struct {
	RemoteId string
	Action   string
	Err      error
}

func (e *ReconcileItemError) Error() string {
	return fmt.Sprintf("%s chatflow %s: %v", e.Action, e.RemoteId, e.Err)
}

func (e *ReconcileItemError) Unwrap() error {
	return e.Err
}
