package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/notify"
)

var (
	errBadRequestBody = errors.New("無効なリクエスト形式です。")
	errMissingToken   = errors.New("認証トークンを指定してください")
	errInvalidToken   = errors.New("認証トークンが無効です。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: statusErrorCode(status), Message: message})
}

// handleServiceError maps application errors onto HTTP statuses.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	kind := application.ErrorKind(err)
	switch kind {
	case "unauthorized":
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: kind,
			Message:   localizedStatusMessage(http.StatusForbidden),
		})
	case "not_found":
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: kind,
			Message:   localizedStatusMessage(http.StatusNotFound),
			Detail:    err.Error(),
		})
	case "validation":
		response := errorResponse{ErrorCode: kind, Message: localizedStatusMessage(http.StatusUnprocessableEntity)}
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			response.Errors = vErr.FieldErrors
		}
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, response)
	case "conflict":
		response := errorResponse{ErrorCode: kind, Message: "指定された日時には既に予定があります。", Detail: err.Error()}
		var cErr *application.ConflictError
		if errors.As(err, &cErr) {
			response.Conflicts = cErr.Conflicts
		}
		r.writeJSON(ctx, w, http.StatusConflict, response)
	case "invalid_transition", "invariant_violation":
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: kind,
			Message:   localizedStatusMessage(http.StatusConflict),
			Detail:    err.Error(),
		})
	default:
		if errors.Is(err, notify.ErrSubscriptionLimit) {
			r.writeError(ctx, w, http.StatusTooManyRequests, err)
			return
		}
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: "internal",
			Message:   localizedStatusMessage(http.StatusInternalServerError),
		})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusTooManyRequests:
		return "接続数の上限に達しました。"
	case http.StatusServiceUnavailable:
		return "サービスを利用できません。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func statusErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusTooManyRequests:
		return "too_many_subscriptions"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return ""
	}
}

type errorResponse struct {
	ErrorCode string                     `json:"error_code,omitempty"`
	Message   string                     `json:"message"`
	Detail    string                     `json:"detail,omitempty"`
	Errors    map[string]string          `json:"errors,omitempty"`
	Conflicts []application.SlotConflict `json:"conflicts,omitempty"`
}
