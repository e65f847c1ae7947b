package reminders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Authorization statuses mirror what a device notification center reports.
const (
	AuthStatusNotDetermined = "not_determined"
	AuthStatusAuthorized    = "authorized"
	AuthStatusDenied        = "denied"
)

// Alert is one pending reminder. ID is "<template_id>:<date>" so a rebuild
// replaces rather than duplicates alerts for the same occurrence.
type Alert struct {
	ID       string    `json:"id"`
	OwnerTag string    `json:"-"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Category string    `json:"category,omitempty"`
	Date     string    `json:"date"`
	FireAt   time.Time `json:"fire_at"`
}

// Notifier abstracts the notification backend. The scheduler only ever
// rebuilds the full pending set for an owner tag, so the surface is
// cancel-all plus schedule.
type Notifier interface {
	AuthorizationStatus(ctx context.Context) (string, error)
	RequestAuthorization(ctx context.Context) (string, error)
	CancelAll(ctx context.Context, ownerTag string) error
	Schedule(ctx context.Context, alert Alert) error
	Pending(ctx context.Context, ownerTag string) ([]Alert, error)
}

// LocalNotifier keeps alerts in memory. It stands in for a real notification
// center in tests and single-node deployments.
type LocalNotifier struct {
	mu     sync.RWMutex
	status string
	alerts map[string]map[string]Alert // ownerTag -> alert ID -> alert
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{
		status: AuthStatusNotDetermined,
		alerts: make(map[string]map[string]Alert),
	}
}

func (n *LocalNotifier) AuthorizationStatus(ctx context.Context) (string, error) {
	_ = ctx

	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status, nil
}

func (n *LocalNotifier) RequestAuthorization(ctx context.Context) (string, error) {
	_ = ctx

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status == AuthStatusNotDetermined {
		n.status = AuthStatusAuthorized
	}
	return n.status, nil
}

// SetAuthorizationStatus overrides the status directly. Used in tests to
// simulate a denied notification center.
func (n *LocalNotifier) SetAuthorizationStatus(status string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = status
}

func (n *LocalNotifier) CancelAll(ctx context.Context, ownerTag string) error {
	_ = ctx

	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.alerts, ownerTag)
	return nil
}

func (n *LocalNotifier) Schedule(ctx context.Context, alert Alert) error {
	_ = ctx

	n.mu.Lock()
	defer n.mu.Unlock()

	byID, ok := n.alerts[alert.OwnerTag]
	if !ok {
		byID = make(map[string]Alert)
		n.alerts[alert.OwnerTag] = byID
	}
	byID[alert.ID] = alert
	return nil
}

func (n *LocalNotifier) Pending(ctx context.Context, ownerTag string) ([]Alert, error) {
	_ = ctx

	n.mu.RLock()
	defer n.mu.RUnlock()

	result := []Alert{}
	for _, alert := range n.alerts[ownerTag] {
		result = append(result, alert)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FireAt.Equal(result[j].FireAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].FireAt.Before(result[j].FireAt)
	})
	return result, nil
}
