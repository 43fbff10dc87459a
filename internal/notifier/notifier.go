// Package notifier turns notification events and bulk requests into gateway
// sends, including the token hygiene that follows a send.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

// Dispatcher handles newly created notification records.
type Dispatcher struct {
	store   dispatch.UserStore
	gateway dispatch.Gateway
	logger  *slog.Logger
}

func NewDispatcher(store dispatch.UserStore, gateway dispatch.Gateway, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		gateway: gateway,
		logger:  logger.With("component", "NotificationDispatcher"),
	}
}

// Notify pushes the record to every device of its user and prunes the tokens
// the gateway reports as dead. Failures are logged and dropped: the record
// counts as handled whatever happened to the push.
func (d *Dispatcher) Notify(ctx context.Context, rec *dispatch.NotificationRecord) {
	if err := d.notify(ctx, rec); err != nil {
		log := d.logger
		if rec != nil {
			log = log.With("user_id", rec.UserID)
		}
		log.Error("Error sending notification", "err", err)
	}
}

func (d *Dispatcher) notify(ctx context.Context, rec *dispatch.NotificationRecord) error {
	if rec == nil {
		return errors.New("nil notification record")
	}
	log := d.logger.With("user_id", rec.UserID)

	tokens, found, err := d.store.GetTokens(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user record: %w", err)
	}
	if !found {
		log.Debug("No user record; nothing to send")
		return nil
	}
	if len(tokens) == 0 {
		log.Debug("User has no registered devices; nothing to send")
		return nil
	}

	msg := dispatch.BuildPushMessage(rec.Title, rec.Message, rec.Type, rec.RelatedID, rec.AdditionalData, tokens)
	results, err := d.gateway.SendMulticast(ctx, msg)
	if err != nil {
		return fmt.Errorf("multicast send failed: %w", err)
	}

	invalid := InvalidTokens(tokens, results)
	log.Info("Notification dispatched", "targets", len(tokens), "invalid", len(invalid))
	if len(invalid) == 0 {
		return nil
	}

	if err := d.store.RemoveTokens(ctx, rec.UserID, invalid); err != nil {
		return fmt.Errorf("failed to prune %d invalid tokens: %w", len(invalid), err)
	}
	log.Info("Pruned invalid tokens", "count", len(invalid))
	return nil
}

// InvalidTokens returns the tokens whose result says the token itself is dead.
// Results are matched to tokens by position; other failures are ignored.
func InvalidTokens(tokens []string, results []dispatch.SendResult) []string {
	var invalid []string
	seen := make(map[string]struct{})
	for idx, res := range results {
		if idx >= len(tokens) {
			break
		}
		if res.Success || !isDeadToken(res.Kind) {
			continue
		}
		token := tokens[idx]
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		invalid = append(invalid, token)
	}
	return invalid
}

func isDeadToken(kind dispatch.ErrorKind) bool {
	return kind == dispatch.ErrorKindInvalidRegistrationToken || kind == dispatch.ErrorKindNotRegistered
}
