package models

import "time"

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual   = "manual"
	SyncTriggeredRetry    = "retry"
	SyncTriggeredSchedule = "schedule"
	SyncTriggeredPush     = "push"
)

// Sync modules selectable per run.
const (
	SyncModuleOrders   = "orders"
	SyncModuleReturns  = "returns"
	SyncModuleRecovery = "recovery"
)

// SyncRun is one execution of the sync cycle (scheduled, manual or push).
type SyncRun struct {
	ID          uint   `gorm:"primary_key" json:"id"`
	Status      string `gorm:"size:20;not null" json:"status"`
	TriggeredBy string `gorm:"size:20" json:"triggered_by"`
	ModulesJSON []byte `gorm:"type:json" json:"modules"`
	StatsJSON   []byte `gorm:"type:json" json:"stats"`

	OrdersSynced  int   `json:"orders_synced"`
	ReturnsSynced int   `json:"returns_synced"`
	ErrorCount    int   `json:"error_count"`
	ParentRunId   *uint `gorm:"index" json:"parent_run_id"`

	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	DurationMs int64      `json:"duration_ms"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SyncErrorRecord is one failed order (or return) within a run. A failure is
// recorded and the run continues with the next order.
type SyncErrorRecord struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	OrderId     string    `gorm:"index;size:64" json:"order_id"`
	OrderName   string    `gorm:"size:64" json:"order_name"`
	ReturnId    string    `gorm:"size:64" json:"return_id"`
	Step        string    `gorm:"size:50" json:"step"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `gorm:"default:false" json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ProcessedReturnRecord mirrors the append-only JSON tracking file into the
// database for queryability. The file remains authoritative.
type ProcessedReturnRecord struct {
	ID              uint      `gorm:"primary_key" json:"id"`
	OrderId         string    `gorm:"uniqueIndex:idx_processed_return,priority:1;size:64;not null" json:"order_id"`
	ReturnId        string    `gorm:"uniqueIndex:idx_processed_return,priority:2;size:64;not null" json:"return_id"`
	OrderName       string    `gorm:"size:64" json:"order_name"`
	CreditNoteEntry int       `json:"credit_note_entry"`
	GiftCardId      string    `gorm:"size:64" json:"gift_card_id"`
	ItemsJSON       []byte    `gorm:"type:json" json:"items"`
	ProcessedAt     time.Time `json:"processed_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}
