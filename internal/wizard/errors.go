package wizard

import "fmt"

// NavigationError rejects an advance or retreat whose precondition does not hold.
// The controller state is unchanged when one is returned.
type NavigationError struct {
	Op     string
	Index  int
	Reason string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("cannot %s at question %d: %s", e.Op, e.Index+1, e.Reason)
}
