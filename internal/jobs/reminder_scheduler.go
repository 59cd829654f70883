package jobs

import (
	"context"
	"time"

	"quartermaster/internal/repositories"
	"quartermaster/internal/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Notifier delivers a nudge to a tenant's configuration channel. The chat
// transport adapter provides the real implementation; the default logs only.
type Notifier interface {
	Notify(ctx context.Context, tenantID, message string) error
}

// ReminderScheduler periodically scans tenants stuck IN_PROGRESS and nudges
// them with their next incomplete setting.
type ReminderScheduler struct {
	scheduler  gocron.Scheduler
	stateRepo  repositories.SettingsStateRepository
	onboarding services.OnboardingService
	notifier   Notifier
	interval   time.Duration
	logger     *zap.Logger
}

func NewReminderScheduler(
	stateRepo repositories.SettingsStateRepository,
	onboarding services.OnboardingService,
	notifier Notifier,
	interval time.Duration,
	logger *zap.Logger,
) (*ReminderScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	rs := &ReminderScheduler{
		scheduler:  scheduler,
		stateRepo:  stateRepo,
		onboarding: onboarding,
		notifier:   notifier,
		interval:   interval,
		logger:     logger,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(rs.runOnce),
	)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Start starts the reminder scheduler
func (rs *ReminderScheduler) Start() {
	rs.logger.Info("starting onboarding reminder scheduler",
		zap.Duration("interval", rs.interval))
	rs.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running scan to finish.
func (rs *ReminderScheduler) Stop() error {
	return rs.scheduler.Shutdown()
}

func (rs *ReminderScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tenants, err := rs.stateRepo.PendingTenants(ctx)
	if err != nil {
		rs.logger.Warn("pending tenant scan failed", zap.Error(err))
		return
	}

	for _, tenantID := range tenants {
		state, err := rs.onboarding.Load(ctx, tenantID)
		if err != nil {
			rs.logger.Warn("failed to load tenant state for reminder",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
			continue
		}

		report := rs.onboarding.Status(state)
		if report.Complete {
			// Completed between scans; drop the marker.
			if err := rs.stateRepo.ClearPending(ctx, tenantID); err != nil {
				rs.logger.Warn("failed to clear pending marker",
					zap.String("tenant_id", tenantID),
					zap.Error(err))
			}
			continue
		}
		if report.NextIncomplete == nil {
			continue
		}

		if rs.notifier == nil {
			rs.logger.Debug("reminder skipped, no notifier",
				zap.String("tenant_id", tenantID),
				zap.String("next_setting", report.NextIncomplete.Key))
			continue
		}

		message := "Onboarding is not finished. Next step: " +
			report.NextIncomplete.Name + " — " + report.NextIncomplete.Description
		if err := rs.notifier.Notify(ctx, tenantID, message); err != nil {
			rs.logger.Warn("reminder delivery failed",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
			continue
		}
		rs.logger.Info("onboarding reminder sent",
			zap.String("tenant_id", tenantID),
			zap.String("next_setting", report.NextIncomplete.Key))
	}
}
