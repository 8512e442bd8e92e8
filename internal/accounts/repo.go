package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/internal/repo"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
)

// Repository exposes account persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs an account repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return repo.First[models.Account](r.DB(ctx), "id = ?", id)
}

func (r *Repository) FindBySubject(ctx context.Context, subject string) (*models.Account, error) {
	return repo.First[models.Account](r.DB(ctx), "external_subject = ?", subject)
}

func (r *Repository) CreateTx(tx *gorm.DB, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return tx.Create(account).Error
}

func (r *Repository) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*models.Account, error) {
	return repo.Locked[models.Account](tx, "id = ?", id)
}

// UpdateWeddingDate sets or clears the wedding date.
func (r *Repository) UpdateWeddingDate(ctx context.Context, id uuid.UUID, date *time.Time) error {
	result := r.DB(ctx).Model(&models.Account{}).Where("id = ?", id).Update("wedding_date", date)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) SaveTx(tx *gorm.DB, account *models.Account) error {
	return tx.Save(account).Error
}
