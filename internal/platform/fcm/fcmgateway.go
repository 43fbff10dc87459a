// Package fcm sends multicast pushes through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

// MessagingClient defines the subset of the Firebase Messaging API we use.
// *messaging.Client satisfies it; tests supply a mock.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Gateway struct {
	client MessagingClient
	logger *slog.Logger
}

func NewGateway(client MessagingClient, logger *slog.Logger) *Gateway {
	return &Gateway{
		client: client,
		logger: logger.With("component", "FCMGateway"),
	}
}

// SendMulticast sends msg to every token and reports one result per token,
// in token order.
func (g *Gateway) SendMulticast(ctx context.Context, msg *dispatch.PushMessage) ([]dispatch.SendResult, error) {
	if len(msg.Tokens) == 0 {
		return nil, nil
	}

	br, err := g.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: msg.Tokens,
		Data:   msg.Data,
		Notification: &messaging.Notification{
			Title: msg.Content.Title,
			Body:  msg.Content.Body,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fcm transport failed: %w", err)
	}
	if len(br.Responses) != len(msg.Tokens) {
		return nil, fmt.Errorf("fcm returned %d responses for %d tokens", len(br.Responses), len(msg.Tokens))
	}

	results := make([]dispatch.SendResult, len(msg.Tokens))
	for idx, resp := range br.Responses {
		results[idx] = dispatch.SendResult{Token: msg.Tokens[idx], Success: resp.Success}
		if resp.Success {
			continue
		}
		results[idx].Err = resp.Error
		results[idx].Kind = Classify(resp.Error)
		if results[idx].Kind == dispatch.ErrorKindOther {
			g.logger.Warn("FCM delivery failed", "err", resp.Error)
		}
	}

	g.logger.Debug("FCM multicast complete", "success", br.SuccessCount, "failure", br.FailureCount)
	return results, nil
}

// Classify maps a per-token FCM error onto the dispatch error kinds.
func Classify(err error) dispatch.ErrorKind {
	switch {
	case err == nil:
		return dispatch.ErrorKindNone
	case messaging.IsUnregistered(err):
		return dispatch.ErrorKindNotRegistered
	case messaging.IsInvalidArgument(err):
		return dispatch.ErrorKindInvalidRegistrationToken
	default:
		return dispatch.ErrorKindOther
	}
}
