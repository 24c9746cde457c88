package report

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/pathwise/learnbot/internal/course"
)

type staticLister []*course.Session

func (s staticLister) All() []*course.Session { return s }

func sampleSessions() []*course.Session {
	a := course.NewSession("user-b", "sql", course.Curriculum{})
	a.Channel = "telegram"
	a.Completed[1] = true
	a.CurrentModule = 2

	b := course.NewSession("user-a", "go", course.Curriculum{})
	b.Channel = "websocket"
	return []*course.Session{a, b}
}

func TestBuildWorkbook(t *testing.T) {
	f, err := BuildWorkbook(sampleSessions())
	if err != nil {
		t.Fatal(err)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 sessions", len(rows))
	}
	if rows[0][0] != "User ID" || rows[0][2] != "Topic" {
		t.Errorf("header = %v", rows[0])
	}
	// Sorted by user id.
	if rows[1][0] != "user-a" || rows[2][0] != "user-b" {
		t.Errorf("rows not sorted by user id: %v / %v", rows[1][0], rows[2][0])
	}
	if rows[2][5] != "1" {
		t.Errorf("completed count for user-b = %q, want 1", rows[2][5])
	}
}

func TestBuildWorkbookEmpty(t *testing.T) {
	f, err := BuildWorkbook(nil)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("empty report should contain only the header, got %d rows", len(rows))
	}
}

func TestHandlerAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHandler(string(hash), staticLister(sampleSessions()))

	tests := []struct {
		name       string
		method     string
		authHeader string
		wantStatus int
	}{
		{"valid token", http.MethodGet, "Bearer sesame", http.StatusOK},
		{"wrong token", http.MethodGet, "Bearer open", http.StatusUnauthorized},
		{"missing header", http.MethodGet, "", http.StatusUnauthorized},
		{"not bearer", http.MethodGet, "Basic sesame", http.StatusUnauthorized},
		{"wrong method", http.MethodPost, "Bearer sesame", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/admin/report", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandlerServesWorkbook(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHandler(string(hash), staticLister(sampleSessions()))

	req := httptest.NewRequest(http.MethodGet, "/admin/report", nil)
	req.Header.Set("Authorization", "Bearer sesame")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a readable workbook: %v", err)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("workbook rows = %d, want 3", len(rows))
	}
}

func TestHandlerDisabledWithoutHash(t *testing.T) {
	h := NewHandler("", staticLister(nil))

	req := httptest.NewRequest(http.MethodGet, "/admin/report", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
