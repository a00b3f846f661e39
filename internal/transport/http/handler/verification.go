package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-email-verify/internal/application/verification"
	"github.com/go-email-verify/internal/domain"
	"github.com/go-email-verify/internal/pkg/logger/sl"
)

const (
	msgLeadSent            = "Verification email sent"
	msgLeadAlreadyVerified = "Email is already verified"
	msgUserSent            = "認証メールを送信しました"
	msgUserAlreadyVerified = "このメールアドレスは既に認証済みです"
	msgInvalidTokenOrEmail = "Invalid token or email"
)

// VerificationHandler serves the three endpoints of the verification flow.
type VerificationHandler struct {
	svc      verification.Service
	log      *slog.Logger
	loginURL string
}

func NewVerificationHandler(svc verification.Service, log *slog.Logger, loginURL string) *VerificationHandler {
	return &VerificationHandler{svc: svc, log: log, loginURL: loginURL}
}

func (h *VerificationHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeadRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.CreateLead(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err), messageFor(err))
		return
	}
	if out == verification.OutcomeAlreadyVerified {
		writeJSON(w, r, http.StatusOK, MessageEnvelope{Message: msgLeadAlreadyVerified})
		return
	}
	writeJSON(w, r, http.StatusOK, MessageEnvelope{Message: msgLeadSent})
}

func (h *VerificationHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	var req domain.SendVerificationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}
	out, err := h.svc.SendVerification(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err), japaneseMessageFor(err))
		return
	}
	if out == verification.OutcomeAlreadyVerified {
		writeJSON(w, r, http.StatusOK, MessageEnvelope{Message: msgUserAlreadyVerified})
		return
	}
	writeJSON(w, r, http.StatusOK, MessageEnvelope{Message: msgUserSent})
}

// VerifyClient is the target of the emailed link. Success renders an HTML page; failures stay JSON.
func (h *VerificationHandler) VerifyClient(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.VerifyRequest{
		Token:  q.Get("token"),
		Email:  q.Get("email"),
		Phone:  q.Get("phone"),
		DBType: q.Get("db_type"),
	}
	out, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			writeError(w, r, http.StatusBadRequest, msgInvalidTokenOrEmail)
			return
		}
		writeError(w, r, statusFor(err), messageFor(err))
		return
	}

	heading := headingVerified
	if out == verification.OutcomeAlreadyVerified {
		heading = headingAlreadyVerified
	}
	page, err := renderResultPage(heading, h.loginURL)
	if err != nil {
		h.log.Error("failed to render result page", sl.Err(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeHTML(w, r, http.StatusOK, page)
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// messageFor exposes validation detail to the caller and only the summary of anything else.
func messageFor(err error) string {
	var de *domain.Error
	if !errors.As(err, &de) {
		return "internal error"
	}
	if de.Kind == domain.KindValidation || de.Msg == "" {
		return de.Error()
	}
	return de.Msg
}

func japaneseMessageFor(err error) string {
	switch {
	case domain.KindOf(err) == domain.KindValidation:
		return "入力内容が正しくありません: " + messageFor(err)
	case errors.Is(err, domain.ErrStoreUnreachable):
		return "データベース接続エラー"
	case errors.Is(err, domain.ErrMailNotConfigured):
		return "メール設定エラー"
	case errors.Is(err, domain.ErrMailAuth):
		return "メール送信の認証に失敗しました"
	case errors.Is(err, domain.ErrMailTransport):
		return "メール送信エラー"
	case errors.Is(err, domain.ErrMailUnexpected):
		return "メール送信中に予期せぬエラーが発生しました"
	default:
		return "予期せぬエラーが発生しました"
	}
}
