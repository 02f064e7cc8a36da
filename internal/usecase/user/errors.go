package user

import (
	"fmt"

	domain "user-events-service/internal/domain/user"
)

// NotificationError reports a mutation that committed but whose event could
// not be published. Response holds the committed result; the store is not
// compensated.
type NotificationError struct {
	Response domain.Response
	Err      error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("mutation committed but event was not published: %v", e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
