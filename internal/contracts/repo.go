package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/internal/repo"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// Repository exposes contract persistence operations.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) CreateTx(tx *gorm.DB, contract *models.Contract) error {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	return tx.Create(contract).Error
}

// FindForAccount loads a contract only if it belongs to accountID.
func (r *Repository) FindForAccount(ctx context.Context, accountID, contractID uuid.UUID) (*models.Contract, error) {
	return repo.First[models.Contract](r.DB(ctx), "id = ? AND account_id = ?", contractID, accountID)
}

func (r *Repository) FindForUpdateTx(tx *gorm.DB, contractID uuid.UUID) (*models.Contract, error) {
	return repo.Locked[models.Contract](tx, "id = ?", contractID)
}

// ActiveForModuleTx reports whether the account already holds a signed or paid
// contract for module.
func (r *Repository) ActiveForModuleTx(tx *gorm.DB, accountID uuid.UUID, module enums.BoutiqueModule) (bool, error) {
	var count int64
	err := tx.Model(&models.Contract{}).
		Where("account_id = ? AND module = ? AND status <> ?", accountID, module, enums.ContractStatusVoid).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Contract, error) {
	var rows []models.Contract
	err := r.DB(ctx).
		Where("account_id = ?", accountID).
		Order("signed_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// MarkPaidTx moves a signed contract to paid.
func (r *Repository) MarkPaidTx(tx *gorm.DB, contractID uuid.UUID, paidAt time.Time) error {
	result := tx.Model(&models.Contract{}).
		Where("id = ? AND status = ?", contractID, enums.ContractStatusSigned).
		Updates(map[string]any{"status": enums.ContractStatusPaid, "paid_at": paidAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
