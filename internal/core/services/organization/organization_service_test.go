package organization

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

	"traceroot/internal/core/domain/organization"
	"traceroot/internal/core/domain/user"
	"traceroot/internal/infrastructure/repository/postgres"
	appErrors "traceroot/pkg/errors"
)

// fixture wires the tenancy services against an in-memory relational store,
// sharing one database per test.
type fixture struct {
	orgs        organization.Service
	members     organization.MemberService
	invitations organization.InvitationService

	orgRepo    organization.Repository
	memberRepo organization.MemberRepository
	userRepo   user.Repository
	tokens     *InviteTokenIssuer
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&user.User{},
		&organization.Organization{},
		&organization.Member{},
		&organization.Invitation{},
	))

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f := &fixture{
		orgRepo:    postgres.NewOrganizationRepository(db),
		memberRepo: postgres.NewMemberRepository(db),
		userRepo:   postgres.NewUserRepository(db),
		tokens:     NewInviteTokenIssuer("test-secret", testTokenTTL),
	}
	tx := postgres.NewTransactor(db)
	invRepo := postgres.NewInvitationRepository(db)
	f.orgs = NewOrganizationService(f.orgRepo, f.memberRepo, tx, logger)
	f.members = NewMemberService(f.memberRepo, f.userRepo, tx, logger)
	f.invitations = NewInvitationService(invRepo, f.memberRepo, f.orgRepo, tx, f.tokens, nil, logger)
	return f
}

func (f *fixture) addUser(t *testing.T, id string, email string) {
	t.Helper()
	u := &user.User{ID: id}
	if email != "" {
		u.Email = &email
	}
	require.NoError(t, f.userRepo.Create(context.Background(), u))
}

func errType(t *testing.T, err error) appErrors.ErrorType {
	t.Helper()
	var appErr *appErrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Type
}

func TestCreateOrganizationMakesSoleOwner(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "u1@example.com")

	org, err := f.orgs.Create(ctx, "u1", "  Acme  ")
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)

	m, err := f.memberRepo.Get(ctx, org.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, organization.RoleOwner, m.Role)

	owners, err := f.memberRepo.CountOwners(ctx, org.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, owners)
}

func TestCreateOrganizationRejectsBlankName(t *testing.T) {
	f := setupFixture(t)

	_, err := f.orgs.Create(context.Background(), "u1", "   ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorTypeValidation, errType(t, err))
}

func TestListForUserCarriesRole(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "u1@example.com")
	f.addUser(t, "u2", "u2@example.com")

	org, err := f.orgs.Create(ctx, "u1", "Acme")
	require.NoError(t, err)
	_, err = f.members.Add(ctx, organization.RoleOwner, org.ID, "u2", organization.RoleViewer)
	require.NoError(t, err)

	mine, err := f.orgs.ListForUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, org.ID, mine[0].ID)
	assert.Equal(t, organization.RoleViewer, mine[0].Role)

	none, err := f.orgs.ListForUser(ctx, "stranger")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateOrganizationName(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "u1@example.com")

	org, err := f.orgs.Create(ctx, "u1", "Acme")
	require.NoError(t, err)

	updated, err := f.orgs.UpdateName(ctx, org.ID, "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)

	got, err := f.orgs.Get(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
}

func TestDeleteOrganization(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "u1@example.com")

	org, err := f.orgs.Create(ctx, "u1", "Acme")
	require.NoError(t, err)
	require.NoError(t, f.orgs.Delete(ctx, org.ID))

	_, err = f.orgs.Get(ctx, org.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorTypeNotFound, errType(t, err))

	err = f.orgs.Delete(ctx, org.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorTypeNotFound, errType(t, err))
}
