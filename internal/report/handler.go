package report

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pathwise/learnbot/internal/course"
)

// SessionLister exposes the sessions the report covers.
type SessionLister interface {
	All() []*course.Session
}

// Handler serves the progress report as an xlsx download. Requests must carry
// a bearer token matching the configured bcrypt hash.
type Handler struct {
	tokenHash []byte
	sessions  SessionLister
}

// NewHandler creates the report endpoint handler. tokenHash is the bcrypt
// hash of the admin token.
func NewHandler(tokenHash string, sessions SessionLister) *Handler {
	return &Handler{tokenHash: []byte(tokenHash), sessions: sessions}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	f, err := BuildWorkbook(h.sessions.All())
	if err != nil {
		slog.Error("report build failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	filename := "course-progress-" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		slog.Error("report write failed", "error", err)
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	if len(h.tokenHash) == 0 {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.tokenHash, []byte(token)) == nil
}
