package repositories

import (
	"context"
	"testing"

	"quartermaster/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type RoleRepoTestSuite struct {
	suite.Suite
	kv   *fakeKV
	repo RoleRepository
	ctx  context.Context
}

func (suite *RoleRepoTestSuite) SetupTest() {
	suite.kv = newFakeKV()
	suite.repo = NewRoleRepo(suite.kv, zap.NewNop())
	suite.ctx = context.Background()
}

func TestRoleRepoTestSuite(t *testing.T) {
	suite.Run(t, new(RoleRepoTestSuite))
}

func (suite *RoleRepoTestSuite) TestGet_AbsentPrincipal() {
	_, ok, err := suite.repo.Get(suite.ctx, "tenant-1", "principal-1")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *RoleRepoTestSuite) TestSetAndGet() {
	record := models.RoleRecord{
		PrincipalID: "principal-1",
		Role:        models.RoleAdmin,
		AssignedBy:  "owner-1",
	}
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "tenant-1", record))

	got, ok, err := suite.repo.Get(suite.ctx, "tenant-1", "principal-1")
	require.NoError(suite.T(), err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), models.RoleAdmin, got.Role)
	assert.Equal(suite.T(), "tenant-1", got.TenantID)
	assert.False(suite.T(), got.UpdatedAt.IsZero())
}

func (suite *RoleRepoTestSuite) TestSet_OverwritesExisting() {
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "tenant-1", models.RoleRecord{
		PrincipalID: "principal-1", Role: models.RoleMember,
	}))
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "tenant-1", models.RoleRecord{
		PrincipalID: "principal-1", Role: models.RoleAdmin,
	}))

	got, ok, err := suite.repo.Get(suite.ctx, "tenant-1", "principal-1")
	require.NoError(suite.T(), err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), models.RoleAdmin, got.Role)
}

func (suite *RoleRepoTestSuite) TestRolesAreTenantScoped() {
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "tenant-1", models.RoleRecord{
		PrincipalID: "principal-1", Role: models.RoleOwner,
	}))

	_, ok, err := suite.repo.Get(suite.ctx, "tenant-2", "principal-1")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *RoleRepoTestSuite) TestList() {
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "tenant-1", models.RoleRecord{
		PrincipalID: "p1", Role: models.RoleOwner,
	}))
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "tenant-1", models.RoleRecord{
		PrincipalID: "p2", Role: models.RoleAdmin,
	}))

	records, err := suite.repo.List(suite.ctx, "tenant-1")
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), records, 2)
}

func (suite *RoleRepoTestSuite) TestSet_RequiresPrincipalID() {
	err := suite.repo.Set(suite.ctx, "tenant-1", models.RoleRecord{Role: models.RoleAdmin})
	assert.Error(suite.T(), err)
}
