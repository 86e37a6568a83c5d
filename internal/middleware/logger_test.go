package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tv-reposteria/api/internal/middleware"
)

func TestLogger_LevelFollowsStatus(t *testing.T) {
	cases := []struct {
		status int
		level  log.Level
	}{
		{http.StatusOK, log.InfoLevel},
		{http.StatusNotFound, log.WarnLevel},
		{http.StatusInternalServerError, log.ErrorLevel},
	}

	for _, tc := range cases {
		logger, hook := test.NewNullLogger()
		handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/orders", nil))

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, tc.level, entry.Level)
		assert.Equal(t, tc.status, entry.Data["status"])
		assert.Equal(t, "/orders", entry.Data["path"])
	}
}

func TestLogger_ImplicitOK(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, http.StatusOK, hook.LastEntry().Data["status"])
	assert.Equal(t, 2, hook.LastEntry().Data["bytes"])
}
