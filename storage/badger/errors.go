package badger

import "errors"

// ErrBackendRequired is returned when a Store is created without a backend.
var ErrBackendRequired = errors.New("badger backend required")
