package notifications

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	keys map[string]string
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) { return m.keys[key], nil }

func (m *memoryStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "ty:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func newTestService(t *testing.T, ob *stubOutbox) (Service, *memoryStore) {
	t.Helper()
	store := &memoryStore{keys: map[string]string{}}
	guard, err := idempotency.NewGuard(store, time.Hour)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	svc, err := NewService(stubTx{}, ob, guard, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc, store
}

func TestNotifySupplierResponseDedupes(t *testing.T) {
	ob := &stubOutbox{}
	svc, store := newTestService(t, ob)
	resp := SupplierResponse{
		OrderID:    uuid.New(),
		SupplierID: uuid.New(),
		Action:     enums.SupplierActionAccept,
		Status:     enums.ProcurementOrderStatusOrdered,
		ItemCount:  2,
	}

	sent, err := svc.NotifySupplierResponse(context.Background(), resp)
	if err != nil || !sent {
		t.Fatalf("expected first notification to be sent, sent=%v err=%v", sent, err)
	}
	sent, err = svc.NotifySupplierResponse(context.Background(), resp)
	if err != nil || sent {
		t.Fatalf("expected duplicate to be suppressed, sent=%v err=%v", sent, err)
	}
	if len(ob.events) != 1 {
		t.Fatalf("expected one event, got %d", len(ob.events))
	}
	key := "ty:idempotency:dedupe:supplier-response:" + resp.OrderID.String() + ":" + resp.SupplierID.String() + ":accept"
	if _, ok := store.keys[key]; !ok {
		t.Fatalf("expected dedupe key %s", key)
	}

	data, ok := ob.events[0].Data.(payloads.NotificationRequestedEvent)
	if !ok {
		t.Fatalf("unexpected payload %T", ob.events[0].Data)
	}
	if data.Audience != enums.ActorRoleAdmin || !strings.Contains(data.Message, "accepted 2 item(s)") {
		t.Fatalf("unexpected notification %+v", data)
	}

	resp.Action = enums.SupplierActionDecline
	if sent, _ := svc.NotifySupplierResponse(context.Background(), resp); !sent {
		t.Fatal("expected a different action to notify again")
	}
}

func TestNotifySupplierResponseReleasesKeyOnFailure(t *testing.T) {
	ob := &stubOutbox{err: errors.New("insert failed")}
	svc, store := newTestService(t, ob)
	resp := SupplierResponse{OrderID: uuid.New(), SupplierID: uuid.New(), Action: enums.SupplierActionDecline}

	if _, err := svc.NotifySupplierResponse(context.Background(), resp); err == nil {
		t.Fatal("expected error")
	}
	if len(store.keys) != 0 {
		t.Fatalf("expected dedupe key released, got %v", store.keys)
	}

	ob.err = nil
	if sent, err := svc.NotifySupplierResponse(context.Background(), resp); err != nil || !sent {
		t.Fatalf("expected retry to send, sent=%v err=%v", sent, err)
	}
}
