package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pathwise/learnbot/internal/chat"
	"github.com/pathwise/learnbot/internal/course"
	"github.com/pathwise/learnbot/internal/platform/config"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	tg, err := chat.NewTelegramChannel("test-token")
	if err != nil {
		t.Fatal(err)
	}
	return &app{
		telegram: tg,
		ws:       chat.NewWebSocketChannel(),
		store:    course.NewMemoryStore(0),
	}
}

func TestHealthEndpoints(t *testing.T) {
	a := newTestApp(t)
	mux := a.mux(&config.Config{})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMuxWebhookRoute(t *testing.T) {
	a := newTestApp(t)

	cfg := &config.Config{}
	cfg.Telegram.Mode = "polling"
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", nil)
	rec := httptest.NewRecorder()
	a.mux(cfg).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("polling mode: webhook route status = %d, want 404", rec.Code)
	}

	cfg.Telegram.Mode = "webhook"
	cfg.Telegram.WebhookSecret = "s3cret"
	req = httptest.NewRequest(http.MethodPost, "/telegram/webhook", nil)
	rec = httptest.NewRecorder()
	a.mux(cfg).ServeHTTP(rec, req)
	if rec.Code == http.StatusNotFound {
		t.Error("webhook mode: route should be registered")
	}
}

func TestMuxReportRoute(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/report", nil)
	rec := httptest.NewRecorder()
	a.mux(&config.Config{}).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("report route without hash: status = %d, want 404", rec.Code)
	}

	cfg := &config.Config{}
	cfg.Report.TokenHash = "$2a$10$notarealhashbutpresent0000000000000000000000000000000"
	req = httptest.NewRequest(http.MethodGet, "/admin/report", nil)
	rec = httptest.NewRecorder()
	a.mux(cfg).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("report route with hash but no token: status = %d, want 401", rec.Code)
	}
}

func TestSetupLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		setupLogger(config.LogConfig{Level: level, Format: "json"})
	}
	setupLogger(config.LogConfig{Level: "info", Format: "text"})
}
