package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

var (
	// ErrUnauthenticated is returned when the caller carries no verified identity.
	ErrUnauthenticated = errors.New("must be authenticated to send notifications")
	// ErrInternal hides every delivery or storage failure from the caller.
	ErrInternal = errors.New("error sending notification")
)

// BulkDispatcher sends one multicast message to all devices of a set of users.
type BulkDispatcher struct {
	store   dispatch.UserStore
	gateway dispatch.Gateway
	logger  *slog.Logger
}

func NewBulkDispatcher(store dispatch.UserStore, gateway dispatch.Gateway, logger *slog.Logger) *BulkDispatcher {
	return &BulkDispatcher{
		store:   store,
		gateway: gateway,
		logger:  logger.With("component", "BulkNotificationDispatcher"),
	}
}

// Send checks the caller identity first and then delivers the request.
// Per-token failures are not inspected and no tokens are pruned here.
func (b *BulkDispatcher) Send(ctx context.Context, callerUID string, req *dispatch.BulkNotificationRequest) error {
	if callerUID == "" {
		return ErrUnauthenticated
	}

	log := b.logger.With("caller_uid", callerUID, "invocation_id", uuid.NewString())
	if err := b.send(ctx, log, req); err != nil {
		log.Error("Error sending bulk notification", "err", err)
		return ErrInternal
	}
	return nil
}

func (b *BulkDispatcher) send(ctx context.Context, log *slog.Logger, req *dispatch.BulkNotificationRequest) error {
	if req == nil {
		return errors.New("nil bulk request")
	}

	tokens, err := b.store.GetTokensForUsers(ctx, req.UserIDs)
	if err != nil {
		return fmt.Errorf("failed to load user records: %w", err)
	}
	if len(tokens) == 0 {
		log.Debug("No devices registered for any target user", "users", len(req.UserIDs))
		return nil
	}

	msg := dispatch.BuildPushMessage(req.Title, req.Body, req.Type, req.RelatedID, req.AdditionalData, tokens)
	if _, err := b.gateway.SendMulticast(ctx, msg); err != nil {
		return fmt.Errorf("multicast send failed: %w", err)
	}

	log.Info("Bulk notification dispatched", "users", len(req.UserIDs), "targets", len(tokens))
	return nil
}
