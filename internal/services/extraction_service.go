package services

import (
	"context"
	"fmt"
	"strings"

	"quartermaster/internal/models"
	"quartermaster/internal/schema"

	"go.uber.org/zap"
)

// Extractor is the external text-extraction service: given the schema
// description, the current conversation context and a raw message, it
// proposes candidate {key, value} pairs. Its output is untrusted input.
type Extractor interface {
	Extract(ctx context.Context, schemaDescription, conversationContext, rawMessage string) ([]models.Candidate, error)
}

// PipelineResult is what the transport adapter delivers back to the
// principal.
type PipelineResult struct {
	Reply      string       `json:"reply"`
	Applied    *ApplyResult `json:"applied,omitempty"`
	Recognized bool         `json:"recognized"`
}

// ExtractionService orchestrates extract -> validate -> commit for one
// inbound message.
type ExtractionService interface {
	HandleMessage(ctx context.Context, tenantID, actorID, text string) (*PipelineResult, error)
}

type extractionService struct {
	schema     *schema.Schema
	extractor  Extractor
	onboarding OnboardingService
	logger     *zap.Logger
}

func NewExtractionService(sch *schema.Schema, extractor Extractor, onboarding OnboardingService, logger *zap.Logger) ExtractionService {
	return &extractionService{
		schema:     sch,
		extractor:  extractor,
		onboarding: onboarding,
		logger:     logger,
	}
}

func (s *extractionService) HandleMessage(ctx context.Context, tenantID, actorID, text string) (*PipelineResult, error) {
	state, err := s.onboarding.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	report := s.onboarding.Status(state)
	conversationContext := s.onboarding.RenderStatus(report)

	candidates, err := s.extractor.Extract(ctx, s.schema.Description(), conversationContext, text)
	if err != nil {
		// Extraction is unreliable by contract; a transport failure is the
		// same non-exceptional outcome as zero candidates.
		s.logger.Warn("extraction call failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		candidates = nil
	}

	candidates = filterCandidates(candidates)
	if len(candidates) == 0 {
		return &PipelineResult{
			Reply:      s.noSettingsReply(report),
			Recognized: false,
		}, nil
	}

	applied, err := s.onboarding.ApplyUpdates(ctx, tenantID, actorID, candidates)
	if err != nil {
		return nil, err
	}

	return &PipelineResult{
		Reply:      s.composeReply(applied),
		Applied:    applied,
		Recognized: true,
	}, nil
}

// filterCandidates drops malformed entries; they are never fatal.
func filterCandidates(candidates []models.Candidate) []models.Candidate {
	usable := candidates[:0]
	for _, cand := range candidates {
		if strings.TrimSpace(cand.Key) == "" || strings.TrimSpace(cand.Value) == "" {
			continue
		}
		usable = append(usable, cand)
	}
	return usable
}

func (s *extractionService) noSettingsReply(report *StatusReport) string {
	var b strings.Builder
	b.WriteString("No settings were recognized in your message.\n")
	if report.NextIncomplete != nil {
		fmt.Fprintf(&b, "Next step: %s — %s\n", report.NextIncomplete.Name, report.NextIncomplete.Description)
	}
	return b.String()
}

func (s *extractionService) composeReply(applied *ApplyResult) string {
	var b strings.Builder
	for _, acc := range applied.Accepted {
		st, _ := s.schema.Get(acc.Key)
		value := acc.Value
		if st != nil && st.Secret {
			value = "********"
		}
		name := acc.Key
		if st != nil {
			name = st.Name
		}
		fmt.Fprintf(&b, "✓ Saved %s: %s\n", name, value)
		if acc.Notice != "" {
			fmt.Fprintf(&b, "  %s\n", acc.Notice)
		}
	}
	for _, rej := range applied.Rejected {
		fmt.Fprintf(&b, "✗ %s: %s\n", rej.Key, rej.Reason)
	}

	if applied.Report.Complete {
		b.WriteString("All required settings are configured.\n")
	} else if applied.Report.NextIncomplete != nil {
		next := applied.Report.NextIncomplete
		fmt.Fprintf(&b, "Next step: %s — %s\n", next.Name, next.Description)
	}
	return b.String()
}
