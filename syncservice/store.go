package syncservice

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mashura/salesbridge/models"
)

// gormStateStore is the production StateStore backed by MySQL.
type gormStateStore struct {
	db *gorm.DB
}

func NewGormStateStore(db *gorm.DB) StateStore {
	return &gormStateStore{db: db}
}

// AutoMigrate creates the sync tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.OrderSyncState{},
		&models.SyncRun{},
		&models.SyncErrorRecord{},
		&models.ProcessedReturnRecord{},
	)
}

func (s *gormStateStore) LoadState(ctx context.Context, orderID, orderName string) (*models.OrderSyncState, error) {
	var state models.OrderSyncState
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = models.OrderSyncState{
			OrderId:   orderID,
			OrderName: orderName,
			Stage:     models.StageNew,
		}
		if err := s.db.WithContext(ctx).Create(&state).Error; err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *gormStateStore) SaveState(ctx context.Context, state *models.OrderSyncState) error {
	return s.db.WithContext(ctx).Save(state).Error
}

func (s *gormStateStore) RecordError(ctx context.Context, rec *models.SyncErrorRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// RecordProcessedReturn upserts on (order_id, return_id) so mirroring a
// replayed return stays idempotent.
func (s *gormStateStore) RecordProcessedReturn(ctx context.Context, rec *models.ProcessedReturnRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "return_id"}},
		DoNothing: true,
	}).Create(rec).Error
}
