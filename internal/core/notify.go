package core

import "context"

// Channel delivers a rendered reminder message to a recipient. A channel
// call may fail; callers isolate failures per notification.
type Channel interface {
	Notify(ctx context.Context, target, message string) error
}
