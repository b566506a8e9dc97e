package quota

import "fmt"

// PersistenceError wraps a failure of the backing store. The manager
// never returns it to callers; it is logged and the manager fails open.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("quota store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
