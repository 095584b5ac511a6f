package notify

import (
	"sync"
	"time"
)

// DefaultToastTTL: время показа одного уведомления.
const DefaultToastTTL = 3 * time.Second

type toast struct {
	notification Notification
	timer        *time.Timer
}

// Tray держит видимые уведомления: каждое исчезает через TTL или по Dismiss.
type Tray struct {
	mu     sync.Mutex
	ttl    time.Duration
	items  []*toast
	sub    *Subscription
	closed bool
}

// NewTray создаёт пустой лоток уведомлений.
func NewTray(ttl time.Duration) *Tray {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Tray{ttl: ttl}
}

// Attach подписывает лоток на шину. Повторный вызов переносит подписку.
func (t *Tray) Attach(bus *Bus) {
	sub := bus.Subscribe(t.Add)

	t.mu.Lock()
	previous := t.sub
	t.sub = sub
	t.mu.Unlock()

	previous.Unsubscribe()
}

// Add показывает уведомление и запускает таймер его скрытия.
func (t *Tray) Add(n Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	item := &toast{notification: n}
	t.items = append(t.items, item)
	item.timer = time.AfterFunc(t.ttl, func() { t.expire(item) })
}

// Dismiss скрывает уведомление досрочно и отменяет его таймер.
func (t *Tray) Dismiss(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, item := range t.items {
		if item.notification.ID == id {
			item.timer.Stop()
			t.items = append(t.items[:i:i], t.items[i+1:]...)
			return true
		}
	}
	return false
}

// Visible возвращает видимые уведомления в порядке поступления.
func (t *Tray) Visible() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Notification, 0, len(t.items))
	for _, item := range t.items {
		out = append(out, item.notification)
	}
	return out
}

// Close отписывается от шины и останавливает все таймеры.
func (t *Tray) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for _, item := range t.items {
		item.timer.Stop()
	}
	t.items = nil
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	sub.Unsubscribe()
}

func (t *Tray) expire(target *toast) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, item := range t.items {
		if item == target {
			t.items = append(t.items[:i:i], t.items[i+1:]...)
			return
		}
	}
}
