package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-email-verify/internal/config"
	"github.com/go-email-verify/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
)

type nopMailer struct{}

func (nopMailer) SendEmail(context.Context, string, string, string) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		EmailBaseURL:      "https://verify.example.com",
		LoginURL:          "https://app.example.com",
		AllowedOrigins:    []string{"*"},
		RateLimitRPS:      0.001,
		RateLimitBurst:    1,
		StoreProbeTimeout: time.Second,
	}
}

func TestNewRouter_Routes(t *testing.T) {
	h := NewRouter(testConfig(), &Deps{Store: memory.NewRecordStore(), Mailer: nopMailer{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify_client?token=x&email=a%40x.com", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/send_verification", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewRouter_RateLimitsMailEndpoints(t *testing.T) {
	h := NewRouter(testConfig(), &Deps{Store: memory.NewRecordStore(), Mailer: nopMailer{}})

	post := func(path, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post("/send_verification", `{"email":"a@x.com"}`))
	assert.Equal(t, http.StatusTooManyRequests, post("/create_lead", `{"name":"n","email":"b@x.com","phone":"1"}`))
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	h := NewRouter(testConfig(), &Deps{Store: memory.NewRecordStore(), Mailer: nopMailer{}})

	req := httptest.NewRequest(http.MethodOptions, "/send_verification", nil)
	req.Header.Set("Origin", "https://www.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
