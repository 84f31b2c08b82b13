package port

import "github.com/skgchp/shoveover/internal/domain"

// StalePolicy decides what to do with a lock whose owner is alive but
// has exceeded the staleness timeout.
//
// Returning nil means the caller may break the lock and acquire it.
// Returning an error aborts acquisition.
type StalePolicy interface {
	HandleStale(state domain.LockState) error
}
