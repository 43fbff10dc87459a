package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

const (
	DefaultUsersCollection = "users"
	tokensField            = "notificationTokens"
)

// FirestoreStore implements dispatch.UserStore on top of the user documents:
// users/{userId}.notificationTokens is an array of FCM tokens.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultUsersCollection
	}
	return &FirestoreStore{client: client, collection: collection}
}

// GetTokens reads the token list of one user. found is false when the user
// document does not exist.
func (s *FirestoreStore) GetTokens(ctx context.Context, userID string) ([]string, bool, error) {
	snap, err := s.userRef(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read user %q: %w", userID, err)
	}

	rec, err := decodeUser(snap)
	if err != nil {
		return nil, false, err
	}
	return rec.NotificationTokens, true, nil
}

// GetTokensForUsers runs one membership query over the document ids and
// concatenates the token lists in iteration order. No chunking is done, so
// userIDs must stay within Firestore's "in" limit.
func (s *FirestoreStore) GetTokensForUsers(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(userIDs))
	for _, id := range userIDs {
		refs = append(refs, s.userRef(id))
	}

	iter := s.client.Collection(s.collection).Where(firestore.DocumentID, "in", refs).Documents(ctx)
	defer iter.Stop()

	var tokens []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		rec, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, rec.NotificationTokens...)
	}
	return tokens, nil
}

// RemoveTokens applies a server-side array removal, so concurrent additions
// survive and repeating the call is harmless.
func (s *FirestoreStore) RemoveTokens(ctx context.Context, userID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	values := make([]interface{}, len(tokens))
	for i, t := range tokens {
		values[i] = t
	}

	_, err := s.userRef(userID).Update(ctx, []firestore.Update{
		{Path: tokensField, Value: firestore.ArrayRemove(values...)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("failed to remove tokens for user %q: %w", userID, err)
	}
	return nil
}

// RegisterToken adds the token with a server-side array union, creating the
// user document if needed.
func (s *FirestoreStore) RegisterToken(ctx context.Context, userID string, token string) error {
	_, err := s.userRef(userID).Set(ctx, map[string]interface{}{
		tokensField: firestore.ArrayUnion(token),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to register token for user %q: %w", userID, err)
	}
	return nil
}

// --- Helpers ---

func (s *FirestoreStore) userRef(userID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(userID)
}

func decodeUser(snap *firestore.DocumentSnapshot) (*dispatch.UserRecord, error) {
	var rec dispatch.UserRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("malformed user record %q: %w", snap.Ref.ID, err)
	}
	rec.UserID = snap.Ref.ID
	return &rec, nil
}
