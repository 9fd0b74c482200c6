package syncservice

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/mashura/salesbridge/config"
	"github.com/mashura/salesbridge/models"
)

var validate = validator.New()

// RunnerHolder hands the lazily-assembled runner to the HTTP handlers. The
// server starts listening before wiring finishes (database, redis, clients),
// so handler goroutines read the runner through an atomic pointer.
type RunnerHolder struct {
	ptr atomic.Pointer[Runner]
}

func (h *RunnerHolder) Set(r *Runner) { h.ptr.Store(r) }

// Wrap builds a handler that answers 503 until the runner is ready.
func (h *RunnerHolder) Wrap(build func(*Runner) gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := h.ptr.Load()
		if r == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service starting"})
			return
		}
		build(r)(c)
	}
}

type TriggerSyncRequest struct {
	Modules []string `json:"modules" validate:"omitempty,dive,oneof=orders returns recovery"`
	OrderId string   `json:"orderId" validate:"omitempty,numeric"`
	// Async publishes the trigger to Pub/Sub instead of running in-process;
	// the push subscription drives the actual work.
	Async bool `json:"async"`
}

type RunResponse struct {
	ID          uint   `json:"id"`
	Status      string `json:"status"`
	TriggeredBy string `json:"triggeredBy"`
	Orders      int    `json:"ordersSynced"`
	Returns     int    `json:"returnsSynced"`
	Errors      int    `json:"errorCount"`
	StartedAt   string `json:"startedAt,omitempty"`
	FinishedAt  string `json:"finishedAt,omitempty"`
	DurationMs  int64  `json:"durationMs"`
}

// StatusHandler reports the most recent run and pending error count.
func StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not ready"})
			return
		}

		var lastRun models.SyncRun
		err := db.WithContext(c.Request.Context()).Order("id desc").First(&lastRun).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resp := gin.H{}
		if lastRun.ID != 0 {
			resp["lastRun"] = mapRunToResponse(&lastRun)
		}

		var errorCount int64
		db.WithContext(c.Request.Context()).Model(&models.SyncErrorRecord{}).
			Where("created_at > ?", time.Now().AddDate(0, 0, -7)).Count(&errorCount)
		resp["recentErrors"] = errorCount

		c.JSON(http.StatusOK, resp)
	}
}

// TriggerSyncHandler starts a run in the background. With an orderId it
// processes just that order synchronously instead.
func TriggerSyncHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		// An empty body means "run everything".
		var req TriggerSyncRequest
		_ = c.ShouldBindJSON(&req)
		if err := validate.Struct(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.Async {
			id, err := PublishSyncRun(c.Request.Context(), runner.settings, SyncPubSubPayload{
				Modules:     req.Modules,
				OrderId:     req.OrderId,
				TriggeredBy: models.SyncTriggeredManual,
			})
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"status": "published", "messageId": id})
			return
		}

		if req.OrderId != "" {
			order, err := runner.storefront.GetOrder(c.Request.Context(), req.OrderId)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			if err := runner.orch.ProcessOrder(c.Request.Context(), order); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "synced", "order": order.Name})
			return
		}

		go func() {
			if _, err := runner.RunOnce(contextWithoutCancel(c), req.Modules, models.SyncTriggeredManual, nil); err != nil && !errors.Is(err, ErrRunInProgress) {
				config.LogError(runner.logger, moduleName, "TriggerSyncHandler", "manual run", nil, err)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	}
}

// SyncHistoryHandler lists recent runs, newest first.
func SyncHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not ready"})
			return
		}

		limit := 20
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		var runs []models.SyncRun
		if err := db.WithContext(c.Request.Context()).Order("id desc").Limit(limit).Find(&runs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		out := make([]RunResponse, 0, len(runs))
		for i := range runs {
			out = append(out, mapRunToResponse(&runs[i]))
		}
		c.JSON(http.StatusOK, gin.H{"runs": out})
	}
}

// SyncRunDetailHandler returns one run with its errors.
func SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not ready"})
			return
		}

		runID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		var run models.SyncRun
		if err := db.WithContext(c.Request.Context()).First(&run, runID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var errs []models.SyncErrorRecord
		db.WithContext(c.Request.Context()).Where("sync_run_id = ?", run.ID).Find(&errs)

		c.JSON(http.StatusOK, gin.H{
			"run":    mapRunToResponse(&run),
			"errors": errs,
		})
	}
}

// RetrySyncRunHandler re-runs the modules of a finished run as a child run.
func RetrySyncRunHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not ready"})
			return
		}

		runID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		var run models.SyncRun
		if err := db.WithContext(c.Request.Context()).First(&run, runID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if run.Status == models.SyncRunStatusRunning || run.Status == models.SyncRunStatusQueued {
			c.JSON(http.StatusConflict, gin.H{"error": "run is still in progress"})
			return
		}

		parentID := run.ID
		modules := decodeModules(run.ModulesJSON)
		go func() {
			if _, err := runner.RunOnce(contextWithoutCancel(c), modules, models.SyncTriggeredRetry, &parentID); err != nil && !errors.Is(err, ErrRunInProgress) {
				config.LogError(runner.logger, moduleName, "RetrySyncRunHandler", "retry run", nil, err)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "parentRunId": parentID})
	}
}

func mapRunToResponse(run *models.SyncRun) RunResponse {
	return RunResponse{
		ID:          run.ID,
		Status:      run.Status,
		TriggeredBy: run.TriggeredBy,
		Orders:      run.OrdersSynced,
		Returns:     run.ReturnsSynced,
		Errors:      run.ErrorCount,
		StartedAt:   formatTime(run.StartedAt),
		FinishedAt:  formatTime(run.FinishedAt),
		DurationMs:  run.DurationMs,
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
