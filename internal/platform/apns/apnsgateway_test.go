package apns

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

type MockAPNSClient struct {
	mock.Mock
}

func (m *MockAPNSClient) Push(n *apns2.Notification) (*apns2.Response, error) {
	args := m.Called(n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apns2.Response), args.Error(1)
}

func TestSendMulticast_Internal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	newMessage := func(tokens ...string) *dispatch.PushMessage {
		return dispatch.BuildPushMessage("Pit window", "Box this lap", "strategy", "lap-31", nil, tokens)
	}

	forToken := func(tok string) interface{} {
		return mock.MatchedBy(func(n *apns2.Notification) bool {
			return n.DeviceToken == tok && n.Topic == "com.test.app"
		})
	}

	t.Run("Happy Path - Success", func(t *testing.T) {
		mockClient := new(MockAPNSClient)
		gateway := newGateway(mockClient, "com.test.app", logger)

		mockClient.On("Push", forToken("token-1")).Return(&apns2.Response{StatusCode: http.StatusOK}, nil)

		results, err := gateway.SendMulticast(ctx, newMessage("token-1"))

		require.NoError(t, err)
		assert.Equal(t, []dispatch.SendResult{{Token: "token-1", Success: true}}, results)
		mockClient.AssertExpectations(t)
	})

	t.Run("Reasons map onto dead-token kinds", func(t *testing.T) {
		mockClient := new(MockAPNSClient)
		gateway := newGateway(mockClient, "com.test.app", logger)

		mockClient.On("Push", forToken("bad")).Return(&apns2.Response{
			StatusCode: http.StatusBadRequest, Reason: apns2.ReasonBadDeviceToken,
		}, nil)
		mockClient.On("Push", forToken("gone")).Return(&apns2.Response{
			StatusCode: http.StatusGone, Reason: apns2.ReasonUnregistered,
		}, nil)
		mockClient.On("Push", forToken("topic")).Return(&apns2.Response{
			StatusCode: http.StatusBadRequest, Reason: apns2.ReasonTopicDisallowed,
		}, nil)

		results, err := gateway.SendMulticast(ctx, newMessage("bad", "gone", "topic"))

		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, dispatch.ErrorKindInvalidRegistrationToken, results[0].Kind)
		assert.Equal(t, dispatch.ErrorKindNotRegistered, results[1].Kind)
		assert.Equal(t, dispatch.ErrorKindOther, results[2].Kind)
		for _, r := range results {
			assert.False(t, r.Success)
			assert.Error(t, r.Err)
		}
	})

	t.Run("Transport Failure is reported per token", func(t *testing.T) {
		mockClient := new(MockAPNSClient)
		gateway := newGateway(mockClient, "com.test.app", logger)

		mockClient.On("Push", mock.Anything).Return(nil, errors.New("connection refused"))

		results, err := gateway.SendMulticast(ctx, newMessage("token-1"))

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, dispatch.ErrorKindOther, results[0].Kind)
	})

	t.Run("Cancelled context stops the loop", func(t *testing.T) {
		mockClient := new(MockAPNSClient)
		gateway := newGateway(mockClient, "com.test.app", logger)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := gateway.SendMulticast(cctx, newMessage("token-1"))

		require.ErrorIs(t, err, context.Canceled)
		mockClient.AssertNotCalled(t, "Push", mock.Anything)
	})

	t.Run("Bad key fails construction", func(t *testing.T) {
		_, err := NewGateway(Config{P8KeyContent: "not a key"}, logger)
		require.Error(t, err)
	})
}
