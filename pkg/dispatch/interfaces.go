// Package dispatch contains the domain model and the collaborator contracts
// used by the push notification dispatchers.
package dispatch

import (
	"context"

	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

// ErrorKind classifies a per-token gateway failure.
type ErrorKind string

const (
	ErrorKindNone                     ErrorKind = ""
	ErrorKindInvalidRegistrationToken ErrorKind = "invalid-registration-token"
	ErrorKindNotRegistered            ErrorKind = "not-registered"
	ErrorKindOther                    ErrorKind = "other"
)

// UserRecord is a user document as far as push delivery is concerned.
type UserRecord struct {
	UserID             string   `firestore:"-" json:"userId"`
	NotificationTokens []string `firestore:"notificationTokens" json:"notificationTokens"`
}

// NotificationRecord is created by other parts of the system; the dispatcher
// only ever reads it.
type NotificationRecord struct {
	UserID         string         `firestore:"userId" json:"userId"`
	Title          string         `firestore:"title" json:"title"`
	Message        string         `firestore:"message" json:"message"`
	Type           string         `firestore:"type" json:"type"`
	RelatedID      string         `firestore:"relatedId" json:"relatedId"`
	AdditionalData map[string]any `firestore:"additionalData,omitempty" json:"additionalData,omitempty"`
	IsRead         bool           `firestore:"isRead" json:"isRead"`
	Timestamp      Timestamp      `firestore:"-" json:"timestamp"`
}

// BulkNotificationRequest is the body of a bulk send call. It is never persisted.
type BulkNotificationRequest struct {
	UserIDs        []string       `json:"userIds"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Type           string         `json:"type"`
	RelatedID      string         `json:"relatedId"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
}

// PushMessage is a multicast message ready for a Gateway.
type PushMessage struct {
	Content notification.NotificationContent
	Data    map[string]string
	Tokens  []string
}

// SendResult is the outcome for one targeted token. Results returned by a
// Gateway are positionally aligned with PushMessage.Tokens.
type SendResult struct {
	Token   string
	Success bool
	Kind    ErrorKind
	Err     error
}

// Gateway delivers a multicast push message.
type Gateway interface {
	// SendMulticast returns one result per target token. A non-nil error means
	// the batch as a whole could not be sent.
	SendMulticast(ctx context.Context, msg *PushMessage) ([]SendResult, error)
}

// UserStore gives access to the device tokens held on user records.
type UserStore interface {
	// GetTokens returns the tokens of a single user. found is false when the
	// user has no record.
	GetTokens(ctx context.Context, userID string) (tokens []string, found bool, err error)

	// GetTokensForUsers returns the concatenated tokens of every existing user
	// among userIDs, in store iteration order. Unknown ids are skipped.
	GetTokensForUsers(ctx context.Context, userIDs []string) ([]string, error)

	// RemoveTokens removes every occurrence of the given tokens from the user's
	// list. It must be safe against concurrent writers.
	RemoveTokens(ctx context.Context, userID string, tokens []string) error

	// RegisterToken adds a token to the user's list if it is not already present.
	RegisterToken(ctx context.Context, userID string, token string) error
}
