package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-email-verify/internal/application/verification"
	"github.com/go-email-verify/internal/domain"
	"github.com/go-email-verify/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) SendVerification(ctx context.Context, req domain.SendVerificationRequest) (verification.Outcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(verification.Outcome), args.Error(1)
}

func (m *mockVerificationSvc) CreateLead(ctx context.Context, req domain.CreateLeadRequest) (verification.Outcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(verification.Outcome), args.Error(1)
}

func (m *mockVerificationSvc) Verify(ctx context.Context, req domain.VerifyRequest) (verification.Outcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(verification.Outcome), args.Error(1)
}

// outbox records every message instead of sending it.
type outbox struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct{ to, subject, body string }

func (o *outbox) SendEmail(_ context.Context, to, subject, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sentMail{to, subject, body})
	return nil
}

func (o *outbox) last(t *testing.T) sentMail {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	return o.sent[len(o.sent)-1]
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

// --- helpers ---

const loginURL = "https://app.example.com"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(svc verification.Service) http.Handler {
	h := NewVerificationHandler(svc, discardLogger(), loginURL)
	r := chi.NewRouter()
	r.Post("/create_lead", h.CreateLead)
	r.Post("/send_verification", h.SendVerification)
	r.Get("/verify_client", h.VerifyClient)
	r.Get("/health-check/{action}", NewHealthHandler().Ping)
	return r
}

func newFlowRouter(t *testing.T) (http.Handler, *outbox) {
	t.Helper()
	box := &outbox{}
	svc := verification.NewService(verification.ServiceDeps{
		Log:     discardLogger(),
		Store:   memory.NewRecordStore(),
		Mailer:  box,
		BaseURL: "https://verify.example.com",
	})
	return newTestRouter(svc), box
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) MessageEnvelope {
	t.Helper()
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

var hrefRe = regexp.MustCompile(`href="([^"]+)"`)

// linkTarget pulls the verification link out of an email and returns its path and query.
func linkTarget(t *testing.T, body string) string {
	t.Helper()
	m := hrefRe.FindStringSubmatch(body)
	require.Len(t, m, 2, "no link in email body")
	u, err := url.Parse(html.UnescapeString(m[1]))
	require.NoError(t, err)
	return u.RequestURI()
}

// --- round trips ---

func TestSendVerification_VerifyRoundTrip(t *testing.T) {
	h, box := newFlowRouter(t)

	rec := postJSON(t, h, "/send_verification", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgUserSent, decodeEnvelope(t, rec).Message)

	link := linkTarget(t, box.last(t).body)
	assert.True(t, strings.HasPrefix(link, "/verify_client?token="))
	assert.Contains(t, link, "&db_type=users")

	rec = get(h, link)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), headingVerified)
	assert.Contains(t, rec.Body.String(), loginURL)

	rec = get(h, link)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), headingAlreadyVerified)

	rec = postJSON(t, h, "/send_verification", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgUserAlreadyVerified, decodeEnvelope(t, rec).Message)
	assert.Equal(t, 1, box.count())
}

func TestCreateLead_VerifyRoundTrip(t *testing.T) {
	h, box := newFlowRouter(t)
	lead := map[string]string{"name": "Lee", "email": "lee@x.com", "phone": "+15550100"}

	rec := postJSON(t, h, "/create_lead", lead)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgLeadSent, decodeEnvelope(t, rec).Message)

	link := linkTarget(t, box.last(t).body)
	assert.Contains(t, link, "&phone=%2B15550100&db_type=leads")

	rec = get(h, link)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), headingVerified)

	rec = postJSON(t, h, "/create_lead", lead)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgLeadAlreadyVerified, decodeEnvelope(t, rec).Message)
	assert.Equal(t, 1, box.count())
}

func TestVerifyClient_StaleLinkRejected(t *testing.T) {
	h, box := newFlowRouter(t)

	postJSON(t, h, "/send_verification", map[string]string{"email": "a@x.com"})
	stale := linkTarget(t, box.last(t).body)
	postJSON(t, h, "/send_verification", map[string]string{"email": "a@x.com"})
	fresh := linkTarget(t, box.last(t).body)
	require.NotEqual(t, stale, fresh)

	rec := get(h, stale)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidTokenOrEmail, decodeEnvelope(t, rec).Error)

	rec = get(h, fresh)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifyClient_WrongCollectionRejected(t *testing.T) {
	h, box := newFlowRouter(t)

	postJSON(t, h, "/send_verification", map[string]string{"email": "a@x.com"})
	link := strings.Replace(linkTarget(t, box.last(t).body), "db_type=users", "db_type=leads", 1)

	rec := get(h, link)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- status mapping ---

func TestVerifyClient_UnknownPair(t *testing.T) {
	h, _ := newFlowRouter(t)
	rec := get(h, "/verify_client?token=nope&email=ghost%40x.com&db_type=users")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid token or email"}`, rec.Body.String())
}

func TestVerifyClient_MissingParams(t *testing.T) {
	h, _ := newFlowRouter(t)
	rec := get(h, "/verify_client?email=a%40x.com")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestVerifyClient_UnknownDBType(t *testing.T) {
	h, _ := newFlowRouter(t)
	rec := get(h, "/verify_client?token=t&email=a%40x.com&db_type=admins")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestVerifyClient_InfraFailure(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("Verify", mock.Anything, mock.Anything).
		Return(verification.Outcome(0), domain.InfraError("find record", errors.New("i/o timeout")))
	rec := get(newTestRouter(svc), "/verify_client?token=t&email=a%40x.com")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "find record", decodeEnvelope(t, rec).Error)
}

func TestCreateLead_BadJSON(t *testing.T) {
	h, _ := newFlowRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/create_lead", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateLead_ValidationError(t *testing.T) {
	h, box := newFlowRouter(t)
	rec := postJSON(t, h, "/create_lead", map[string]string{"email": "bad"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, decodeEnvelope(t, rec).Error)
	assert.Zero(t, box.count())
}

func TestSendVerification_ErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"store down", domain.InfraError("database connection error", fmt.Errorf("%w: %w", domain.ErrStoreUnreachable, errors.New("timeout"))), http.StatusInternalServerError, "データベース接続エラー"},
		{"mail config", domain.ConfigError("mail settings error", domain.ErrMailNotConfigured), http.StatusInternalServerError, "メール設定エラー"},
		{"mail auth", domain.InfraError("mail authentication failed", domain.ErrMailAuth), http.StatusInternalServerError, "メール送信の認証に失敗しました"},
		{"mail transport", domain.InfraError("mail send error", domain.ErrMailTransport), http.StatusInternalServerError, "メール送信エラー"},
		{"mail unexpected", domain.InternalError("unexpected", domain.ErrMailUnexpected), http.StatusInternalServerError, "メール送信中に予期せぬエラーが発生しました"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "予期せぬエラーが発生しました"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockVerificationSvc{}
			svc.On("SendVerification", mock.Anything, domain.SendVerificationRequest{Email: "a@x.com"}).
				Return(verification.Outcome(0), tc.err)

			rec := postJSON(t, newTestRouter(svc), "/send_verification", map[string]string{"email": "a@x.com"})

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decodeEnvelope(t, rec).Error)
		})
	}
}

func TestSendVerification_ValidationIs422(t *testing.T) {
	h, _ := newFlowRouter(t)
	rec := postJSON(t, h, "/send_verification", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, strings.HasPrefix(decodeEnvelope(t, rec).Error, "入力内容が正しくありません"))
}

func TestSendVerification_AcceptsOptionalID(t *testing.T) {
	id := "abc"
	svc := &mockVerificationSvc{}
	svc.On("SendVerification", mock.Anything, domain.SendVerificationRequest{Email: "a@x.com", ID: &id}).
		Return(verification.OutcomeSent, nil)

	rec := postJSON(t, newTestRouter(svc), "/send_verification", map[string]string{"email": "a@x.com", "id": "abc"})
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(&mockVerificationSvc{})

	rec := get(h, "/health-check/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())

	rec = get(h, "/health-check/other")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
