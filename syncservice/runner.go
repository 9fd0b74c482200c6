package syncservice

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mashura/salesbridge/config"
	"github.com/mashura/salesbridge/models"
	"github.com/mashura/salesbridge/shopify"
	"github.com/mashura/salesbridge/tracking"
)

// ErrRunInProgress is returned when another instance holds the cycle lock.
var ErrRunInProgress = errors.New("a sync run is already in progress")

const cycleLockKey = "salesbridge:sync-cycle"
const cycleLockTTL = 15 * time.Minute

// Runner executes sync cycles: on an interval, on a manual trigger, or on a
// Pub/Sub push. A distributed lock keeps concurrent triggers from
// double-processing the same orders.
type Runner struct {
	orch       *Orchestrator
	storefront Storefront
	tracking   *tracking.Store
	db         *gorm.DB
	settings   *config.Settings
	logger     *logrus.Logger
}

func NewRunner(orch *Orchestrator, storefront Storefront, trackingStore *tracking.Store, db *gorm.DB, settings *config.Settings, logger *logrus.Logger) *Runner {
	return &Runner{
		orch:       orch,
		storefront: storefront,
		tracking:   trackingStore,
		db:         db,
		settings:   settings,
		logger:     logger,
	}
}

// Start blocks running scheduled cycles until the context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	interval := time.Duration(r.settings.SyncIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx, nil, models.SyncTriggeredSchedule, nil); err != nil && !errors.Is(err, ErrRunInProgress) {
				config.LogError(r.logger, moduleName, "Start", "scheduled run", nil, err)
			}
		}
	}
}

type runStats struct {
	OrdersSeen        int `json:"orders_seen"`
	OrdersSynced      int `json:"orders_synced"`
	ReturnsOrders     int `json:"returns_orders"`
	ReturnsSynced     int `json:"returns_synced"`
	PaymentsRecovered int `json:"payments_recovered"`
	Errors            int `json:"errors"`
}

// RunOnce executes one cycle over the selected modules (nil means all).
func (r *Runner) RunOnce(ctx context.Context, modules []string, triggeredBy string, parentRunId *uint) (*models.SyncRun, error) {
	if len(modules) == 0 {
		modules = []string{models.SyncModuleOrders, models.SyncModuleReturns, models.SyncModuleRecovery}
	}

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, cycleLockKey, cycleLockTTL, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, ErrRunInProgress
			}
			return nil, err
		}
		defer lock.Release(context.Background())
	}

	run := r.beginRun(ctx, modules, triggeredBy, parentRunId)
	stats := runStats{}

	for _, mod := range modules {
		switch mod {
		case models.SyncModuleOrders:
			r.syncOrders(ctx, run, &stats)
		case models.SyncModuleReturns:
			r.syncReturns(ctx, run, &stats)
		case models.SyncModuleRecovery:
			recovered, failed := r.orch.RecoverMissingPayments(ctx)
			stats.PaymentsRecovered += recovered
			stats.Errors += failed
		}
	}

	r.finishRun(ctx, run, stats)
	return run, nil
}

func (r *Runner) syncOrders(ctx context.Context, run *models.SyncRun, stats *runStats) {
	since := time.Now().AddDate(0, 0, -r.settings.OrderLookbackDays)
	orders, err := r.storefront.FindOrdersToSync(ctx, since, models.TagInvoiceSynced)
	if err != nil {
		config.LogError(r.logger, moduleName, "syncOrders", "list orders", nil, err)
		stats.Errors++
		return
	}

	for i := range orders {
		order := &orders[i]
		stats.OrdersSeen++
		if err := r.processOne(ctx, run, order); err != nil {
			stats.Errors++
			continue
		}
		stats.OrdersSynced++
	}
}

// syncReturns covers two sets: orders the platform reports with in-progress
// returns, and orders from the tracking store's follow-up window. The second
// set catches additional returns on orders that were already settled and no
// longer match any search.
func (r *Runner) syncReturns(ctx context.Context, run *models.SyncRun, stats *runStats) {
	since := time.Now().AddDate(0, 0, -r.settings.OrderLookbackDays)
	seen := map[string]bool{}

	orders, err := r.storefront.FindOrdersWithOpenReturns(ctx, since)
	if err != nil {
		config.LogError(r.logger, moduleName, "syncReturns", "list return orders", nil, err)
		stats.Errors++
	}
	for i := range orders {
		order := &orders[i]
		seen[shopify.NumericID(order.ID)] = true
		stats.ReturnsOrders++
		if err := r.processOne(ctx, run, order); err != nil {
			stats.Errors++
			continue
		}
		stats.ReturnsSynced++
	}

	cutoff := time.Now().AddDate(0, 0, -r.settings.FollowUpWindowDays)
	for _, orderID := range r.tracking.OrdersWithReturnsSince(cutoff) {
		if seen[orderID] {
			continue
		}
		order, err := r.storefront.GetOrder(ctx, orderID)
		if err != nil {
			config.LogError(r.logger, moduleName, "syncReturns", "follow-up fetch", orderID, err)
			stats.Errors++
			continue
		}
		stats.ReturnsOrders++
		if err := r.processOne(ctx, run, order); err != nil {
			stats.Errors++
			continue
		}
		stats.ReturnsSynced++
	}
}

// processOne isolates a single order: its failure is persisted and the cycle
// moves on.
func (r *Runner) processOne(ctx context.Context, run *models.SyncRun, order *shopify.Order) error {
	err := r.orch.ProcessOrder(ctx, order)
	if err == nil {
		return nil
	}
	config.LogError(r.logger, moduleName, "processOne", order.Name, nil, err)
	if r.db != nil {
		rec := &models.SyncErrorRecord{
			SyncRunId: run.ID,
			OrderId:   shopify.NumericID(order.ID),
			OrderName: order.Name,
			Step:      "order",
			Message:   err.Error(),
			Retryable: true,
		}
		if dbErr := r.db.WithContext(ctx).Create(rec).Error; dbErr != nil {
			config.LogError(r.logger, moduleName, "processOne", "record error", nil, dbErr)
		}
	}
	return err
}

func (r *Runner) beginRun(ctx context.Context, modules []string, triggeredBy string, parentRunId *uint) *models.SyncRun {
	now := time.Now()
	modulesJSON, _ := json.Marshal(modules)
	run := &models.SyncRun{
		Status:      models.SyncRunStatusRunning,
		TriggeredBy: triggeredBy,
		ModulesJSON: modulesJSON,
		ParentRunId: parentRunId,
		StartedAt:   &now,
	}
	if r.db != nil {
		if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
			config.LogError(r.logger, moduleName, "beginRun", "create run", nil, err)
		}
	}
	return run
}

func (r *Runner) finishRun(ctx context.Context, run *models.SyncRun, stats runStats) {
	now := time.Now()
	run.FinishedAt = &now
	if run.StartedAt != nil {
		run.DurationMs = now.Sub(*run.StartedAt).Milliseconds()
	}
	run.OrdersSynced = stats.OrdersSynced
	run.ReturnsSynced = stats.ReturnsSynced
	run.ErrorCount = stats.Errors
	run.StatsJSON, _ = json.Marshal(stats)

	switch {
	case stats.Errors == 0:
		run.Status = models.SyncRunStatusSuccess
	case stats.OrdersSynced+stats.ReturnsSynced+stats.PaymentsRecovered > 0:
		run.Status = models.SyncRunStatusPartial
	default:
		run.Status = models.SyncRunStatusFailed
	}

	if r.db != nil {
		if err := r.db.WithContext(ctx).Save(run).Error; err != nil {
			config.LogError(r.logger, moduleName, "finishRun", "save run", nil, err)
		}
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"module":  moduleName,
			"runId":   run.ID,
			"status":  run.Status,
			"orders":  stats.OrdersSynced,
			"returns": stats.ReturnsSynced,
			"errors":  stats.Errors,
		}).Info("sync run finished")
	}
}
