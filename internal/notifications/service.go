// Package notifications places admin and supplier alerts on the outbox. The
// notification sink that delivers them lives outside this service.
package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/payloads"
)

const supplierResponseScope = "supplier-response"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type deduper interface {
	Claim(ctx context.Context, key idempotency.Key) (bool, error)
	Release(ctx context.Context, key idempotency.Key) error
}

// SupplierResponse describes a supplier accept or decline worth telling admins about.
type SupplierResponse struct {
	OrderID    uuid.UUID
	SupplierID uuid.UUID
	Action     enums.SupplierAction
	Status     enums.ProcurementOrderStatus
	ItemCount  int
	Actor      *outbox.ActorRef
}

// Service requests notifications.
type Service interface {
	NotifySupplierResponse(ctx context.Context, resp SupplierResponse) (bool, error)
}

type service struct {
	tx     txRunner
	outbox outboxPublisher
	dedupe deduper
	logg   *logger.Logger
}

// NewService wires the notification requester.
func NewService(tx txRunner, outbox outboxPublisher, dedupe deduper, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, outbox: outbox, dedupe: dedupe, logg: logg}, nil
}

// NotifySupplierResponse queues one admin alert per (order, supplier, action).
// It reports false when an identical alert was already requested.
func (s *service) NotifySupplierResponse(ctx context.Context, resp SupplierResponse) (bool, error) {
	key, err := idempotency.Tuple(supplierResponseScope, resp.OrderID.String(), resp.SupplierID.String(), string(resp.Action))
	if err != nil {
		return false, err
	}
	first, err := s.dedupe.Claim(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check notification dedupe: %w", err)
	}
	if !first {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":    resp.OrderID.String(),
			"supplier_id": resp.SupplierID.String(),
			"action":      resp.Action,
		})
		s.logg.Info(logCtx, "duplicate supplier response notification suppressed")
		return false, nil
	}

	supplierID := resp.SupplierID
	title, message := supplierResponseCopy(resp)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   resp.OrderID,
			Version:       1,
			Actor:         resp.Actor,
			Data: payloads.NotificationRequestedEvent{
				Type:       enums.NotificationTypeOrderAlert,
				Audience:   enums.ActorRoleAdmin,
				OrderID:    resp.OrderID,
				SupplierID: &supplierID,
				Action:     string(resp.Action),
				Title:      title,
				Message:    message,
			},
		})
	})
	if err != nil {
		if releaseErr := s.dedupe.Release(ctx, key); releaseErr != nil {
			s.logg.Error(ctx, "release notification dedupe key", releaseErr)
		}
		return false, err
	}
	return true, nil
}

func supplierResponseCopy(resp SupplierResponse) (string, string) {
	short := resp.OrderID.String()[:8]
	switch resp.Action {
	case enums.SupplierActionAccept:
		return "Supplier accepted order",
			fmt.Sprintf("Supplier accepted %d item(s) on order %s. Order is now %s.", resp.ItemCount, short, resp.Status)
	default:
		return "Supplier declined order",
			fmt.Sprintf("Supplier declined %d item(s) on order %s. Order is now %s.", resp.ItemCount, short, resp.Status)
	}
}
