// Package apns sends pushes straight to the Apple Push Notification Service.
package apns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

// APNSClient defines the subset of the apns2.Client methods we use.
type APNSClient interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

type Gateway struct {
	client APNSClient
	topic  string // app bundle id
	logger *slog.Logger
}

// Config holds the credentials required to sign APNs tokens.
type Config struct {
	KeyID    string
	TeamID   string
	BundleID string
	// P8KeyContent is the raw content of the .p8 file.
	P8KeyContent string
	Development  bool
}

// NewGateway parses the P8 key up front so bad credentials fail at startup.
func NewGateway(cfg Config, logger *slog.Logger) (*Gateway, error) {
	authKey, err := token.AuthKeyFromBytes([]byte(cfg.P8KeyContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs P8 key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Development {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return newGateway(client, cfg.BundleID, logger), nil
}

func newGateway(client APNSClient, topic string, logger *slog.Logger) *Gateway {
	return &Gateway{
		client: client,
		topic:  topic,
		logger: logger.With("component", "APNSGateway"),
	}
}

// SendMulticast pushes to each token in turn; APNs has no multicast endpoint.
// Transport failures are reported per token, never for the whole batch.
func (g *Gateway) SendMulticast(ctx context.Context, msg *dispatch.PushMessage) ([]dispatch.SendResult, error) {
	if len(msg.Tokens) == 0 {
		return nil, nil
	}

	builder := payload.NewPayload().
		AlertTitle(msg.Content.Title).
		AlertBody(msg.Content.Body).
		Sound("default")
	for k, v := range msg.Data {
		builder.Custom(k, v)
	}

	results := make([]dispatch.SendResult, 0, len(msg.Tokens))
	for _, deviceToken := range msg.Tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, g.push(deviceToken, builder))
	}
	return results, nil
}

func (g *Gateway) push(deviceToken string, builder *payload.Payload) dispatch.SendResult {
	res, err := g.client.Push(&apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       g.topic,
		Payload:     builder,
		Priority:    apns2.PriorityHigh,
	})
	if err != nil {
		g.logger.Error("APNs transport failed", "err", err)
		return dispatch.SendResult{Token: deviceToken, Kind: dispatch.ErrorKindOther, Err: err}
	}
	if res.Sent() {
		return dispatch.SendResult{Token: deviceToken, Success: true}
	}

	result := dispatch.SendResult{
		Token: deviceToken,
		Err:   fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason),
	}
	switch res.Reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonDeviceTokenNotForTopic:
		result.Kind = dispatch.ErrorKindInvalidRegistrationToken
	case apns2.ReasonUnregistered:
		result.Kind = dispatch.ErrorKindNotRegistered
	default:
		// The token may be fine; the problem is on our side (topic, payload).
		g.logger.Warn("APNs rejected notification", "reason", res.Reason, "status", res.StatusCode)
		result.Kind = dispatch.ErrorKindOther
	}
	return result
}
