package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	auditrepository "github.com/smallbiznis/tigerlife/internal/audit/repository"
	auditservice "github.com/smallbiznis/tigerlife/internal/audit/service"
	authdomain "github.com/smallbiznis/tigerlife/internal/auth/domain"
	authrepository "github.com/smallbiznis/tigerlife/internal/auth/repository"
	"github.com/smallbiznis/tigerlife/internal/clock"
	"github.com/smallbiznis/tigerlife/internal/config"
	membershipdomain "github.com/smallbiznis/tigerlife/internal/membership/domain"
	membershiprepository "github.com/smallbiznis/tigerlife/internal/membership/repository"
	membershipservice "github.com/smallbiznis/tigerlife/internal/membership/service"
	"github.com/smallbiznis/tigerlife/internal/migration"
	notificationdomain "github.com/smallbiznis/tigerlife/internal/notification/domain"
	"github.com/smallbiznis/tigerlife/internal/notification/publisher"
	notificationrepository "github.com/smallbiznis/tigerlife/internal/notification/repository"
	notificationservice "github.com/smallbiznis/tigerlife/internal/notification/service"
	obsmetrics "github.com/smallbiznis/tigerlife/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/tigerlife/internal/organization/domain"
	orgrepository "github.com/smallbiznis/tigerlife/internal/organization/repository"
	"github.com/smallbiznis/tigerlife/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	sched    *Scheduler
	conn     *gorm.DB
	clock    *clock.FakeClock
	registry *prometheus.Registry
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	conn := db.NewTest(t, migration.Models()...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	notifier := notificationservice.NewService(notificationservice.Params{
		Log:       log,
		Repo:      notificationrepository.NewRepository(conn),
		Publisher: publisher.New(nil),
		GenID:     node,
		Clock:     clk,
	})
	memberships := membershipservice.NewService(membershipservice.Params{
		Log:     log,
		Repo:    membershiprepository.NewRepository(conn),
		OrgRepo: orgrepository.NewRepository(conn),
		Policy:  config.NewStaticMembershipPolicyHolder(config.DefaultMembershipPolicy()),
		Audit: auditservice.NewService(auditservice.Params{
			Log:   log,
			GenID: node,
			Repo:  auditrepository.Provide(conn),
			Clock: clk,
		}),
		Notifier: notifier,
		GenID:    node,
		Clock:    clk,
	})
	_, revoked := authrepository.New(conn)

	registry := prometheus.NewRegistry()
	schedMetrics, err := obsmetrics.NewSchedulerMetrics(registry, obsmetrics.Config{ServiceName: "tigerlife", Environment: "test"})
	require.NoError(t, err)

	sched, err := New(Params{
		Log:           log,
		Memberships:   memberships,
		RevokedTokens: revoked,
		GenID:         node,
		Clock:         clk,
		Metrics:       schedMetrics,
		Config:        cfg,
	})
	require.NoError(t, err)

	return &fixture{sched: sched, conn: conn, clock: clk, registry: registry}
}

func (f *fixture) seedPendingRequest(t *testing.T) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.conn.Create(&authdomain.User{ID: 1, Email: "admin@example.edu", PasswordHash: "x"}).Error)
	require.NoError(t, f.conn.Create(&authdomain.User{ID: 2, Email: "member@example.edu", PasswordHash: "x"}).Error)
	require.NoError(t, f.conn.Create(&orgdomain.Organization{
		ID:          100,
		Name:        "Chess Club",
		Slug:        "chess-club",
		Type:        orgdomain.TypeGeneral,
		Description: "Weekly games",
		CreatorID:   1,
		AdminID:     1,
		Status:      orgdomain.StatusApproved,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)
	require.NoError(t, f.conn.Create(&membershipdomain.Membership{
		ID:             10,
		UserID:         2,
		OrganizationID: 100,
		Status:         orgdomain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error)
}

func (f *fixture) countNotifications(t *testing.T, userID snowflake.ID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&notificationdomain.Notification{}).
		Where("user_id = ? AND kind = ?", userID, notificationdomain.KindMembershipRequested).
		Count(&count).Error)
	return count
}

func TestRunOnceBackfillsRequestNotificationsOnce(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedPendingRequest(t)
	ctx := context.Background()

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, int64(1), f.countNotifications(t, 1))

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, int64(1), f.countNotifications(t, 1))

	labels := map[string]string{"service": "tigerlife", "env": "test", "job": JobNotificationReconcile}
	assert.Equal(t, float64(2), getCounterValue(t, f.registry, "tigerlife_scheduler_job_runs_total", labels))
	assert.Equal(t, float64(2), getCounterValue(t, f.registry, "tigerlife_scheduler_processed_total", labels))
}

func TestRevokedTokenPurgeKeepsLiveEntries(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{JobRevokedTokenPurge}})
	now := f.clock.Now()

	require.NoError(t, f.conn.Create(&[]authdomain.RevokedToken{
		{JTI: "expired", UserID: 1, ExpiresAt: now.Add(-time.Hour), RevokedAt: now.Add(-2 * time.Hour)},
		{JTI: "live", UserID: 1, ExpiresAt: now.Add(time.Hour), RevokedAt: now},
	}).Error)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	var remaining []authdomain.RevokedToken
	require.NoError(t, f.conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "live", remaining[0].JTI)
}

func TestEnabledJobsFiltersThePass(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{JobRevokedTokenPurge}})
	f.seedPendingRequest(t)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, int64(0), f.countNotifications(t, 1))
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	schedMetrics, err := obsmetrics.NewSchedulerMetrics(registry, obsmetrics.Config{ServiceName: "tigerlife", Environment: "test"})
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	s := &Scheduler{log: zap.NewNop(), genID: node, clock: clock.NewFakeClock(time.Time{}), metrics: schedMetrics, cfg: DefaultConfig()}
	err = s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{"service": "tigerlife", "env": "test", "job": "timeout_job"}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "tigerlife_scheduler_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "tigerlife",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "tigerlife_scheduler_job_errors_total", errorLabels))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			require.NotNil(t, metric.Counter, "metric %s is not a counter", name)
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
