package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supchat-io/notifyhub/internal/config"
	"github.com/supchat-io/notifyhub/internal/store"
)

func Test_errorHandler(t *testing.T) {
	repo := &store.MockNotifyRepository{}
	app, _ := newTestApp(t, repo, &config.Config{})

	t.Run("recovers from a panic", func(t *testing.T) {
		handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected 500 after a panic")
		assert.Equal(t, "close", rr.Header().Get("Connection"), "expected the connection to be closed")
	})

	t.Run("passes through normal responses", func(t *testing.T) {
		handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))

		assert.Equal(t, http.StatusNoContent, rr.Code, "expected the handler's status code")
	})
}
