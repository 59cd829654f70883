package services

import (
	"context"
	"errors"
	"testing"

	"quartermaster/internal/models"
	"quartermaster/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// stubExtractor returns canned candidates and records what it was asked.
type stubExtractor struct {
	candidates  []models.Candidate
	err         error
	lastContext string
	lastMessage string
	calls       int
}

func (s *stubExtractor) Extract(ctx context.Context, schemaDescription, conversationContext, rawMessage string) ([]models.Candidate, error) {
	s.calls++
	s.lastContext = conversationContext
	s.lastMessage = rawMessage
	return s.candidates, s.err
}

type ExtractionServiceTestSuite struct {
	suite.Suite
	schema    *schema.Schema
	extractor *stubExtractor
	service   ExtractionService
	ctx       context.Context
}

func (suite *ExtractionServiceTestSuite) SetupTest() {
	sch, err := schema.New(zap.NewNop(),
		&models.Setting{Key: "name", Name: "Community Name", Description: "What the community is called.", Required: true},
		&models.Setting{
			Key: "level", Name: "Moderation Level", Description: "How strict moderation is.",
			Required: true, Validate: func(v string) bool { return v == "relaxed" || v == "strict" },
		},
		&models.Setting{Key: "api_token", Name: "API Token", Description: "Upstream credential.", Secret: true},
	)
	require.NoError(suite.T(), err)
	suite.schema = sch

	suite.extractor = &stubExtractor{}
	onboarding := NewOnboardingService(sch, newMemStateRepo(sch), nil, nil, zap.NewNop())
	suite.service = NewExtractionService(sch, suite.extractor, onboarding, zap.NewNop())
	suite.ctx = context.Background()
}

func TestExtractionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ExtractionServiceTestSuite))
}

func (suite *ExtractionServiceTestSuite) TestNoCandidates() {
	result, err := suite.service.HandleMessage(suite.ctx, "tenant-1", "actor-1", "hello there")
	require.NoError(suite.T(), err)

	assert.False(suite.T(), result.Recognized)
	assert.Nil(suite.T(), result.Applied)
	assert.Contains(suite.T(), result.Reply, "No settings were recognized")
	assert.Contains(suite.T(), result.Reply, "Next step: Community Name")
	assert.Equal(suite.T(), 1, suite.extractor.calls)
}

func (suite *ExtractionServiceTestSuite) TestExtractorErrorTreatedAsNoCandidates() {
	suite.extractor.err = errors.New("upstream timeout")

	result, err := suite.service.HandleMessage(suite.ctx, "tenant-1", "actor-1", "call it Gopher Club")
	require.NoError(suite.T(), err)

	assert.False(suite.T(), result.Recognized)
	assert.Contains(suite.T(), result.Reply, "No settings were recognized")
}

func (suite *ExtractionServiceTestSuite) TestMalformedCandidatesFiltered() {
	suite.extractor.candidates = []models.Candidate{
		{Key: "", Value: "orphan"},
		{Key: "name", Value: "   "},
	}

	result, err := suite.service.HandleMessage(suite.ctx, "tenant-1", "actor-1", "noise")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), result.Recognized)
}

func (suite *ExtractionServiceTestSuite) TestAcceptedAndRejectedReply() {
	suite.extractor.candidates = []models.Candidate{
		{Key: "name", Value: "Gopher Club"},
		{Key: "level", Value: "medium"},
	}

	result, err := suite.service.HandleMessage(suite.ctx, "tenant-1", "actor-1", "set it up")
	require.NoError(suite.T(), err)

	assert.True(suite.T(), result.Recognized)
	require.NotNil(suite.T(), result.Applied)
	assert.Len(suite.T(), result.Applied.Accepted, 1)
	assert.Len(suite.T(), result.Applied.Rejected, 1)

	assert.Contains(suite.T(), result.Reply, "✓ Saved Community Name: Gopher Club")
	assert.Contains(suite.T(), result.Reply, "✗ level:")
	assert.Contains(suite.T(), result.Reply, "Next step: Moderation Level")
}

func (suite *ExtractionServiceTestSuite) TestSecretMaskedInReply() {
	suite.extractor.candidates = []models.Candidate{
		{Key: "api_token", Value: "hunter2-credential"},
	}

	result, err := suite.service.HandleMessage(suite.ctx, "tenant-1", "actor-1", "token is hunter2-credential")
	require.NoError(suite.T(), err)

	assert.Contains(suite.T(), result.Reply, "✓ Saved API Token: ********")
	assert.NotContains(suite.T(), result.Reply, "hunter2-credential")
}

func (suite *ExtractionServiceTestSuite) TestCompletionReply() {
	suite.extractor.candidates = []models.Candidate{
		{Key: "name", Value: "Gopher Club"},
		{Key: "level", Value: "strict"},
	}

	result, err := suite.service.HandleMessage(suite.ctx, "tenant-1", "actor-1", "name Gopher Club, strict moderation")
	require.NoError(suite.T(), err)

	require.NotNil(suite.T(), result.Applied)
	assert.True(suite.T(), result.Applied.Completed)
	assert.Contains(suite.T(), result.Reply, "All required settings are configured.")
}

func (suite *ExtractionServiceTestSuite) TestConversationContextCarriesStatus() {
	_, err := suite.service.HandleMessage(suite.ctx, "tenant-1", "actor-1", "hi")
	require.NoError(suite.T(), err)

	assert.Contains(suite.T(), suite.extractor.lastContext, "Community Name")
	assert.Equal(suite.T(), "hi", suite.extractor.lastMessage)
}
