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

type OwnershipRepoTestSuite struct {
	suite.Suite
	kv   *fakeKV
	repo OwnershipRepository
	ctx  context.Context
}

func (suite *OwnershipRepoTestSuite) SetupTest() {
	suite.kv = newFakeKV()
	suite.repo = NewOwnershipRepo(suite.kv, zap.NewNop())
	suite.ctx = context.Background()
}

func TestOwnershipRepoTestSuite(t *testing.T) {
	suite.Run(t, new(OwnershipRepoTestSuite))
}

func (suite *OwnershipRepoTestSuite) TestGet_Absent() {
	record, err := suite.repo.Get(suite.ctx, "tenant-1")
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), record)
}

func (suite *OwnershipRepoTestSuite) TestPutAndGet() {
	record := &models.OwnershipRecord{
		TenantID:     "tenant-1",
		OwnerID:      "owner-1",
		RegisteredBy: "agent-1",
	}
	require.NoError(suite.T(), suite.repo.Put(suite.ctx, record))

	got, err := suite.repo.Get(suite.ctx, "tenant-1")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got)
	assert.Equal(suite.T(), "owner-1", got.OwnerID)
	assert.False(suite.T(), got.CreatedAt.IsZero())
}

func (suite *OwnershipRepoTestSuite) TestFindByOwner() {
	require.NoError(suite.T(), suite.repo.Put(suite.ctx, &models.OwnershipRecord{
		TenantID:     "tenant-1",
		OwnerID:      "owner-1",
		RegisteredBy: "agent-1",
	}))

	got, err := suite.repo.FindByOwner(suite.ctx, "agent-1", "owner-1")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got)
	assert.Equal(suite.T(), "tenant-1", got.TenantID)
}

func (suite *OwnershipRepoTestSuite) TestFindByOwner_ScopedToAgent() {
	require.NoError(suite.T(), suite.repo.Put(suite.ctx, &models.OwnershipRecord{
		TenantID:     "tenant-1",
		OwnerID:      "owner-1",
		RegisteredBy: "agent-1",
	}))

	got, err := suite.repo.FindByOwner(suite.ctx, "agent-2", "owner-1")
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), got)
}

func (suite *OwnershipRepoTestSuite) TestPut_ValidatesIDs() {
	err := suite.repo.Put(suite.ctx, &models.OwnershipRecord{TenantID: "tenant-1"})
	assert.Error(suite.T(), err)
}
