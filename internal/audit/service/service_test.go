package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tigerlife/internal/audit/domain"
	"github.com/smallbiznis/tigerlife/internal/audit/masking"
	"github.com/smallbiznis/tigerlife/internal/audit/repository"
	"github.com/smallbiznis/tigerlife/internal/clock"
	obscontext "github.com/smallbiznis/tigerlife/internal/observability/context"
	"github.com/smallbiznis/tigerlife/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()

	conn := db.NewTest(t, &auditdomain.AuditLog{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC))
	return NewService(Params{
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Repo:  repository.Provide(conn),
		Clock: clk,
	}), clk
}

func TestAuditLogResolvesActorFromContext(t *testing.T) {
	svc, _ := newTestService(t)

	ctx := obscontext.WithActor(context.Background(), obscontext.ActorTypeUser, "99")
	ctx = obscontext.WithRequestID(ctx, "req-1")
	target := "99"
	require.NoError(t, svc.AuditLog(ctx, nil, "admin.grant.attempt", "user", &target, map[string]any{
		"code": "tiger_supersecret",
	}))

	logs, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Action: "admin.grant.attempt"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "user", logs[0].ActorType)
	require.NotNil(t, logs[0].ActorID)
	assert.Equal(t, "99", *logs[0].ActorID)
	assert.Equal(t, "req-1", logs[0].Metadata["request_id"])
	assert.Equal(t, masking.Redacted, logs[0].Metadata["code"])
}

func TestAuditLogDefaultsToSystemActor(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.AuditLog(context.Background(), nil, "organization.approved", "organization", nil, nil))

	logs, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "system", logs[0].ActorType)
	assert.Nil(t, logs[0].ActorID)
	assert.Nil(t, logs[0].TargetID)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.AuditLog(context.Background(), nil, "  ", "organization", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListNewestFirst(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AuditLog(ctx, nil, "first", "organization", nil, nil))
	clk.Advance(time.Minute)
	require.NoError(t, svc.AuditLog(ctx, nil, "second", "organization", nil, nil))

	logs, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "second", logs[0].Action)
}
