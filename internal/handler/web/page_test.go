package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestIndexRendersModelInfo(t *testing.T) {
	r := chi.NewRouter()
	New(PageInfo{Provider: "gemini", Model: "gemini-1.5-pro"}).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Science Tutor Chatbot")
	assert.Contains(t, body, "gemini / gemini-1.5-pro")
}
