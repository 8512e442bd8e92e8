package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
)

// Repository persists the processor charges recorded at checkout.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, charge *models.Charge) error
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Charge, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Charge, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a charge repository backed by db.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, charge *models.Charge) error {
	if charge.ID == uuid.Nil {
		charge.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(charge).Error
}

func (r *repository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Charge, error) {
	var rows []models.Charge
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// FindByIdempotencyKey returns nil, nil when no charge used key.
func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Charge, error) {
	var charge models.Charge
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).Limit(1).Find(&charge).Error
	if err != nil {
		return nil, err
	}
	if charge.ID == uuid.Nil {
		return nil, nil
	}
	return &charge, nil
}
