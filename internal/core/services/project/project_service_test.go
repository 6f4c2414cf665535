package project

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"traceroot/internal/core/domain/project"
	"traceroot/internal/infrastructure/repository/postgres"
	appErrors "traceroot/pkg/errors"
	"traceroot/pkg/ulid"
)

func setupService(t *testing.T) project.Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&project.Project{}))

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewProjectService(postgres.NewProjectRepository(db), logger)
}

func errType(t *testing.T, err error) appErrors.ErrorType {
	t.Helper()
	var appErr *appErrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Type
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestCreateProject(t *testing.T) {
	svc := setupService(t)
	orgID := ulid.New()

	p, err := svc.Create(context.Background(), orgID, "  checkout  ", intPtr(30))
	require.NoError(t, err)
	assert.Equal(t, "checkout", p.Name)
	assert.Equal(t, orgID, p.OrgID)
	require.NotNil(t, p.RetentionDays)
	assert.Equal(t, 30, *p.RetentionDays)
}

func TestCreateProjectValidation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ulid.New(), "   ", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorTypeValidation, errType(t, err))

	_, err = svc.Create(ctx, ulid.New(), "checkout", intPtr(0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorTypeValidation, errType(t, err))
}

func TestProjectNameUniquePerOrganization(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	orgID := ulid.New()

	_, err := svc.Create(ctx, orgID, "checkout", nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, orgID, "checkout", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorTypeConflict, errType(t, err))

	// The same name is fine in another organization.
	_, err = svc.Create(ctx, ulid.New(), "checkout", nil)
	require.NoError(t, err)
}

func TestProjectNameReusableAfterSoftDelete(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	orgID := ulid.New()

	old, err := svc.Create(ctx, orgID, "checkout", nil)
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, old.ID))

	replacement, err := svc.Create(ctx, orgID, "checkout", nil)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, replacement.ID)
}

func TestSoftDeletedProjectNotFound(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, ulid.New(), "checkout", nil)
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, p.ID))

	_, err = svc.Get(ctx, p.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorTypeNotFound, errType(t, err))

	listed, err := svc.ListByOrganization(ctx, p.OrgID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestUpdateProject(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	orgID := ulid.New()

	p, err := svc.Create(ctx, orgID, "checkout", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, orgID, "billing", nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, p.ID, project.UpdateParams{Name: strPtr("billing")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorTypeConflict, errType(t, err))

	updated, err := svc.Update(ctx, p.ID, project.UpdateParams{
		Name:          strPtr("checkout-v2"),
		RetentionDays: intPtr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "checkout-v2", updated.Name)
	require.NotNil(t, updated.RetentionDays)
	assert.Equal(t, 7, *updated.RetentionDays)
}

func TestUpdateKeepingOwnNameIsNotAConflict(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, ulid.New(), "checkout", nil)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, project.UpdateParams{
		Name:          strPtr("checkout"),
		RetentionDays: intPtr(14),
	})
	require.NoError(t, err)
	assert.Equal(t, "checkout", updated.Name)
}
