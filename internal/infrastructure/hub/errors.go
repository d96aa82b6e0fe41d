package hub

import "errors"

var (
	ErrNotRunning         = errors.New("hub is not running")
	ErrAlreadyRunning     = errors.New("hub is already running")
	ErrEmptyKey           = errors.New("endpoint key is empty")
	ErrConnectionExists   = errors.New("connection already registered for endpoint")
	ErrNotConnected       = errors.New("not connected")
	ErrReceiveOnly        = errors.New("transport is receive-only")
	ErrAlreadyClosed      = errors.New("already closed")
	ErrUnsupportedScheme  = errors.New("unsupported endpoint scheme")
	ErrObserverNotTracked = errors.New("observer does not belong to this hub")
)
