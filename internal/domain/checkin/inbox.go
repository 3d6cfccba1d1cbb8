package checkin

import (
	"context"
	"sync"

	"github.com/okian/sideline/internal/domain/model"
)

const defaultInboxSize = 100

// Inbox is a Notifier that keeps the most recent notifications for admins
// to read.
type Inbox struct {
	mu    sync.Mutex
	items []model.Notification
	size  int
}

// NewInbox returns an inbox holding up to size notifications.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = defaultInboxSize
	}
	return &Inbox{size: size}
}

// Notify implements Notifier.
func (in *Inbox) Notify(_ context.Context, n model.Notification) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items = append(in.items, n)
	if over := len(in.items) - in.size; over > 0 {
		in.items = append([]model.Notification(nil), in.items[over:]...)
	}
}

// List returns the notifications, newest first.
func (in *Inbox) List() []model.Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]model.Notification, 0, len(in.items))
	for i := len(in.items) - 1; i >= 0; i-- {
		out = append(out, in.items[i])
	}
	return out
}
