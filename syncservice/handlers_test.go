package syncservice

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mashura/salesbridge/config"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestTriggerSyncAsyncFailsWithoutTopic(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	runner := NewRunner(nil, nil, nil, nil, &config.Settings{}, logger)

	router := newTestRouter()
	router.POST("/api/sync/trigger", TriggerSyncHandler(runner))

	req := httptest.NewRequest(http.MethodPost, "/api/sync/trigger", strings.NewReader(`{"async": true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "PUBSUB_TOPIC") {
		t.Fatalf("response should name the missing setting: %s", w.Body.String())
	}
}

func TestRunnerHolderGatesUntilReady(t *testing.T) {
	var holder RunnerHolder
	router := newTestRouter()
	router.GET("/api/sync/status", holder.Wrap(func(r *Runner) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
		}
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("before wiring: status = %d, want 503", w.Code)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	holder.Set(NewRunner(nil, nil, nil, nil, &config.Settings{}, logger))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("after wiring: status = %d, want 200: %s", w.Code, w.Body.String())
	}
}
