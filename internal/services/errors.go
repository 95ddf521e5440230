package services

import "errors"

var (
	// ErrOrganizationNotFound indicates the registry has no record for the requested id.
	ErrOrganizationNotFound = errors.New("resolver: organization not found")
	// ErrRegistryUnavailable indicates the registry failed transiently; the id may be retried.
	ErrRegistryUnavailable = errors.New("resolver: registry unavailable")
	// ErrRegistryTimeout indicates the registry did not answer within the configured bound.
	ErrRegistryTimeout = errors.New("resolver: registry timed out")
	// ErrStore indicates the record store failed while reading.
	ErrStore = errors.New("resolver: store failure")
)
