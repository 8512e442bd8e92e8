package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/internal/repo"
	"github.com/wedanddone/wedanddone-backend/internal/repo/repotest"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
)

type ctxKey struct{}

func TestBaseDBBindsContext(t *testing.T) {
	conn := repotest.Open(t)
	base := repo.NewBase(conn)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	scoped := base.DB(ctx)
	require.NotNil(t, scoped.Statement)
	assert.Equal(t, ctx, scoped.Statement.Context)
	assert.Same(t, conn, base.DB(nil))
}

func TestFirstAndLocked(t *testing.T) {
	conn := repotest.Open(t)
	account := models.Account{ID: uuid.New(), ExternalSubject: "idp|first", Email: "first@example.com"}
	require.NoError(t, conn.Create(&account).Error)

	found, err := repo.First[models.Account](conn, "external_subject = ?", "idp|first")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	err = conn.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.Locked[models.Account](tx, "id = ?", account.ID)
		if err == nil {
			assert.Equal(t, "first@example.com", locked.Email)
		}
		return err
	})
	require.NoError(t, err)

	_, err = repo.First[models.Account](conn, "id = ?", uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
