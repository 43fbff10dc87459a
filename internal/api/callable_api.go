package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-fanpush-service/internal/notifier"
	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

// Callable status codes, as understood by Firebase client SDKs.
const (
	StatusUnauthenticated = "UNAUTHENTICATED"
	StatusInternal        = "INTERNAL"
	StatusInvalidArgument = "INVALID_ARGUMENT"
)

// BulkSender is satisfied by *notifier.BulkDispatcher.
type BulkSender interface {
	Send(ctx context.Context, callerUID string, req *dispatch.BulkNotificationRequest) error
}

// CallableAPI exposes the bulk dispatcher using the HTTPS callable protocol:
// the request body is {"data": ...} and the reply is either {"result": ...}
// or {"error": {"status", "message"}}.
type CallableAPI struct {
	Sender BulkSender
	Logger *slog.Logger
}

func NewCallableAPI(sender BulkSender, logger *slog.Logger) *CallableAPI {
	return &CallableAPI{
		Sender: sender,
		Logger: logger.With("component", "CallableAPI"),
	}
}

type callableRequest struct {
	Data *dispatch.BulkNotificationRequest `json:"data"`
}

type callableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type callableResult struct {
	Result any `json:"result"`
}

type callableFailure struct {
	Error callableError `json:"error"`
}

// SendBulkNotification checks the caller identity before reading the body.
func (api *CallableAPI) SendBulkNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerUID, _ := middleware.GetUserHandleFromContext(ctx)
	if callerUID == "" {
		writeCallableError(w, http.StatusUnauthorized, StatusUnauthenticated, "Must be authenticated to send notifications")
		return
	}

	var req callableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Data == nil {
		api.Logger.Warn("SendBulkNotification: invalid body", "err", err)
		writeCallableError(w, http.StatusBadRequest, StatusInvalidArgument, "Bad Request")
		return
	}

	err := api.Sender.Send(ctx, callerUID, req.Data)
	switch {
	case err == nil:
		writeCallable(w, http.StatusOK, callableResult{})
	case errors.Is(err, notifier.ErrUnauthenticated):
		writeCallableError(w, http.StatusUnauthorized, StatusUnauthenticated, "Must be authenticated to send notifications")
	default:
		writeCallableError(w, http.StatusInternalServerError, StatusInternal, "Error sending notification")
	}
}

func writeCallableError(w http.ResponseWriter, code int, status, message string) {
	writeCallable(w, code, callableFailure{Error: callableError{Status: status, Message: message}})
}

func writeCallable(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
