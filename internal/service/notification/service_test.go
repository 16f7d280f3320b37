package notification_service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository/memstore"
	"futsal-club/internal/service"

	"go.uber.org/zap"
)

type recordingChannel struct {
	mu        sync.Mutex
	err       error
	delivered []int64
}

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Deliver(_ context.Context, user *models.User, n *models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivered = append(c.delivered, user.ID)
	return c.err
}

func (c *recordingChannel) recipients() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.delivered...)
}

var readAt = time.Date(2024, time.August, 6, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, ch Channel) (*memstore.Store, service.Notifier) {
	t.Helper()
	store := memstore.New()
	var channels []Channel
	if ch != nil {
		channels = append(channels, ch)
	}
	svc := NewNotificationService(store.Notifications(), store.Users(), channels,
		func() time.Time { return readAt }, zap.NewNop())
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return store, svc
}

func addUser(t *testing.T, store *memstore.Store, u models.User) models.User {
	t.Helper()
	u.IsActive = true
	if err := store.Users().Create(context.Background(), &u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestNotifyStoresAndDelivers(t *testing.T) {
	ch := &recordingChannel{}
	store, svc := newService(t, ch)
	ctx := context.Background()
	u := addUser(t, store, models.User{FirstName: "Reza"})

	n := &models.Notification{RecipientID: u.ID, Type: models.NotifySalaryReady, Title: "salary"}
	if err := svc.Notify(ctx, n); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(ctx); err != nil {
		t.Fatal(err)
	}

	if n.ID == 0 || len(store.NotificationsFor(u.ID)) != 1 {
		t.Errorf("notification not stored: %+v", n)
	}
	if got := ch.recipients(); len(got) != 1 || got[0] != u.ID {
		t.Errorf("delivered to %v", got)
	}
}

func TestNotifyIgnoresChannelFailure(t *testing.T) {
	ch := &recordingChannel{err: errors.New("telegram down")}
	store, svc := newService(t, ch)
	u := addUser(t, store, models.User{FirstName: "Reza"})

	if err := svc.Notify(context.Background(), &models.Notification{RecipientID: u.ID, Title: "x"}); err != nil {
		t.Fatalf("channel failure leaked: %v", err)
	}
}

func TestNotifyReturnsStoreFailure(t *testing.T) {
	store, svc := newService(t, nil)
	boom := errors.New("disk full")
	store.FailAfter("notifications.create", 0, boom)

	err := svc.Notify(context.Background(), &models.Notification{RecipientID: 1, Title: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestNotifyValidates(t *testing.T) {
	_, svc := newService(t, nil)
	for _, n := range []*models.Notification{{Title: "no recipient"}, {RecipientID: 1}} {
		if err := svc.Notify(context.Background(), n); !errors.Is(err, service.ErrInvalidInput) {
			t.Errorf("%+v: err = %v", n, err)
		}
	}
}

func TestNotifyOnceDeduplicatesUnread(t *testing.T) {
	store, svc := newService(t, nil)
	ctx := context.Background()
	u := addUser(t, store, models.User{FirstName: "Ali"})
	mk := func() *models.Notification {
		return &models.Notification{RecipientID: u.ID, Type: models.NotifyInsuranceExpiry, Title: "insurance", Subject: "insurance:player:3"}
	}

	sent, err := svc.NotifyOnce(ctx, mk())
	if err != nil || !sent {
		t.Fatalf("first: sent=%v err=%v", sent, err)
	}
	sent, err = svc.NotifyOnce(ctx, mk())
	if err != nil || sent {
		t.Fatalf("second: sent=%v err=%v", sent, err)
	}

	other := mk()
	other.Subject = "insurance:player:4"
	if sent, _ := svc.NotifyOnce(ctx, other); !sent {
		t.Error("different subject was deduplicated")
	}

	unread, err := svc.ListUnread(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range unread {
		if err := svc.MarkRead(ctx, n.ID); err != nil {
			t.Fatal(err)
		}
	}
	if sent, _ := svc.NotifyOnce(ctx, mk()); !sent {
		t.Error("read notification must not block a new one")
	}
	if got := len(store.NotificationsFor(u.ID)); got != 4 {
		t.Errorf("stored %d notifications, want 4", got)
	}
}

func TestMarkReadStampsTime(t *testing.T) {
	store, svc := newService(t, nil)
	ctx := context.Background()
	u := addUser(t, store, models.User{FirstName: "Ali"})
	n := &models.Notification{RecipientID: u.ID, Title: "x"}
	if err := svc.Notify(ctx, n); err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkRead(ctx, n.ID); err != nil {
		t.Fatal(err)
	}
	stored := store.NotificationsFor(u.ID)[0]
	if !stored.IsRead || stored.ReadAt == nil || !stored.ReadAt.Equal(readAt) {
		t.Errorf("stored = %+v", stored)
	}
}

func TestNotifyFinanceManagers(t *testing.T) {
	ch := &recordingChannel{}
	store, svc := newService(t, ch)
	ctx := context.Background()
	a := addUser(t, store, models.User{FirstName: "A", IsFinanceManager: true})
	b := addUser(t, store, models.User{FirstName: "B", IsFinanceManager: true})
	coach := addUser(t, store, models.User{FirstName: "C"})

	err := svc.NotifyFinanceManagers(ctx, models.Notification{Type: models.NotifySalaryDispute, Title: "dispute"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if len(store.NotificationsFor(a.ID)) != 1 || len(store.NotificationsFor(b.ID)) != 1 {
		t.Error("every finance manager should get one notification")
	}
	if len(store.NotificationsFor(coach.ID)) != 0 {
		t.Error("non-manager notified")
	}
	if got := len(ch.recipients()); got != 2 {
		t.Errorf("delivered %d, want 2", got)
	}
}
