package model

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrReferentialIntegrity = errors.New("referenced document does not exist")
	ErrFetchFailure         = errors.New("fetch failed")
	ErrMalformedLink        = errors.New("malformed link")
	ErrNotInitialized       = errors.New("allocator is not initialized")
)
