package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	auditrepository "github.com/smallbiznis/tigerlife/internal/audit/repository"
	auditservice "github.com/smallbiznis/tigerlife/internal/audit/service"
	authrepository "github.com/smallbiznis/tigerlife/internal/auth/repository"
	authservice "github.com/smallbiznis/tigerlife/internal/auth/service"
	"github.com/smallbiznis/tigerlife/internal/auth/session"
	"github.com/smallbiznis/tigerlife/internal/auth/token"
	"github.com/smallbiznis/tigerlife/internal/authorization"
	"github.com/smallbiznis/tigerlife/internal/clock"
	"github.com/smallbiznis/tigerlife/internal/config"
	"github.com/smallbiznis/tigerlife/internal/gateway"
	membershiprepository "github.com/smallbiznis/tigerlife/internal/membership/repository"
	membershipservice "github.com/smallbiznis/tigerlife/internal/membership/service"
	"github.com/smallbiznis/tigerlife/internal/migration"
	"github.com/smallbiznis/tigerlife/internal/notification/publisher"
	notificationrepository "github.com/smallbiznis/tigerlife/internal/notification/repository"
	notificationservice "github.com/smallbiznis/tigerlife/internal/notification/service"
	"github.com/smallbiznis/tigerlife/internal/observability"
	obslogger "github.com/smallbiznis/tigerlife/internal/observability/logger"
	orgrepository "github.com/smallbiznis/tigerlife/internal/organization/repository"
	orgservice "github.com/smallbiznis/tigerlife/internal/organization/service"
	"github.com/smallbiznis/tigerlife/internal/ratelimit"
	"github.com/smallbiznis/tigerlife/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testGrantCode = "campus-grant-code"

type envelope struct {
	Success      bool            `json:"success"`
	Data         json.RawMessage `json:"data"`
	Error        *string         `json:"error"`
	ErrorKind    string          `json:"error_kind"`
	RequestToken string          `json:"request_token"`
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestServerWithLimiter(t, nil)
}

func newTestServerWithLimiter(t *testing.T, limiter *ratelimit.Limiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := db.NewTest(t, migration.Models()...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	clk := clock.SystemClock{}
	cfg := config.Config{AdminGrantCode: testGrantCode, HTTPAddr: ":0"}

	users, revoked := authrepository.New(conn)
	authSvc := authservice.New(authservice.Params{
		Log:         log,
		Repo:        users,
		RevokedRepo: revoked,
		Tokens:      token.New([]byte("server-test-secret"), time.Hour, clk),
		GenID:       node,
		Clock:       clk,
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(conn),
		Clock: clk,
	})
	notifier := notificationservice.NewService(notificationservice.Params{
		Log:       log,
		Repo:      notificationrepository.NewRepository(conn),
		Publisher: publisher.New(nil),
		GenID:     node,
		Clock:     clk,
	})
	orgRepo := orgrepository.NewRepository(conn)
	orgSvc := orgservice.NewService(orgservice.Params{
		Log:      log,
		Repo:     orgRepo,
		GenID:    node,
		Clock:    clk,
		Notifier: notifier,
		Audit:    auditSvc,
	})
	membershipSvc := membershipservice.NewService(membershipservice.Params{
		Log:      log,
		Repo:     membershiprepository.NewRepository(conn),
		OrgRepo:  orgRepo,
		Policy:   config.NewStaticMembershipPolicyHolder(config.DefaultMembershipPolicy()),
		Notifier: notifier,
		Audit:    auditSvc,
		GenID:    node,
		Clock:    clk,
	})

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	guard := authorization.NewService(authorization.Params{
		DB:         conn,
		Log:        log,
		Enforcer:   enforcer,
		Escalation: authorization.NewStaticSecretStrategy(cfg),
		AuthSvc:    authSvc,
		AuditSvc:   auditSvc,
		Limiter:    limiter,
	})

	gw := gateway.New(gateway.Params{
		Log:           log,
		Organizations: orgSvc,
		Memberships:   membershipSvc,
		Guard:         guard,
		Auth:          authSvc,
		Notifications: notifier,
		Audit:         auditSvc,
	})

	engine := NewEngine(observability.Config{LogLevel: "debug", Environment: "test"}, nil)
	srv := NewServer(ServerParams{
		Gin:      engine,
		Cfg:      cfg,
		Log:      log,
		Gateway:  gw,
		Authsvc:  authSvc,
		AuditSvc: auditSvc,
		Sessions: session.NewManager(cfg),
		Limiter:  limiter,
	})
	srv.RegisterRoutes()
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)

	var env envelope
	if resp.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	}
	return resp, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type account struct {
	ID    string
	Token string
}

func register(t *testing.T, engine *gin.Engine, email string) account {
	t.Helper()

	resp, _ := do(t, engine, http.MethodPost, "/auth/signup", "", SignUpRequest{
		Email:     email,
		Password:  "correct horse battery",
		FirstName: "Test",
		LastName:  "Student",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp, env := do(t, engine, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    email,
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	login := decode[struct {
		User struct {
			ID string `json:"user_id"`
		} `json:"user"`
		Token string `json:"token"`
	}](t, env)
	require.NotEmpty(t, login.Token)
	return account{ID: login.User.ID, Token: login.Token}
}

func TestHealth(t *testing.T) {
	engine := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	engine := newTestServer(t)

	resp, env := do(t, engine, http.MethodGet, "/api/organizations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.False(t, env.Success)
	assert.Equal(t, string(gateway.KindUnauthenticated), env.ErrorKind)

	resp, _ = do(t, engine, http.MethodGet, "/api/organizations", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	engine := newTestServer(t)
	alice := register(t, engine, "alice@example.edu")

	resp, _ := do(t, engine, http.MethodGet, "/auth/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp, _ = do(t, engine, http.MethodPost, "/auth/logout", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp, env := do(t, engine, http.MethodGet, "/auth/me", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, string(gateway.KindUnauthenticated), env.ErrorKind)
}

func TestRequestTokenIsEchoed(t *testing.T) {
	engine := newTestServer(t)
	alice := register(t, engine, "alice@example.edu")

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	req.Header.Set(obslogger.HeaderRequestToken, "view-17")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Equal(t, "view-17", env.RequestToken)
	assert.Equal(t, "view-17", resp.Header().Get(obslogger.HeaderRequestToken))
}

func TestCreateOrganizationValidation(t *testing.T) {
	engine := newTestServer(t)
	alice := register(t, engine, "alice@example.edu")

	resp, env := do(t, engine, http.MethodPost, "/api/organizations", alice.Token, createOrganizationRequest{
		Name:        "ab",
		Type:        "general",
		Description: "long enough description",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(gateway.KindValidation), env.ErrorKind)

	resp, env = do(t, engine, http.MethodGet, "/api/organizations/not-an-id", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(gateway.KindValidation), env.ErrorKind)
}

func TestMembershipWorkflowEndToEnd(t *testing.T) {
	engine := newTestServer(t)
	owner := register(t, engine, "owner@example.edu")
	member := register(t, engine, "member@example.edu")
	dean := register(t, engine, "dean@example.edu")

	// owner creates an organization; it starts pending.
	resp, env := do(t, engine, http.MethodPost, "/api/organizations", owner.Token, createOrganizationRequest{
		Name:        "Chess Club",
		Type:        "general",
		Description: "Weekly games in the library",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	org := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, env)
	assert.Equal(t, "pending", org.Status)

	// Non-admins cannot decide organizations or see the pending list.
	resp, env = do(t, engine, http.MethodPost, "/api/admin/organizations/"+org.ID+"/approve", owner.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, string(gateway.KindNotAuthorized), env.ErrorKind)

	// A wrong passphrase leaves the dean without admin rights.
	resp, env = do(t, engine, http.MethodPost, "/api/me/admin-grant", dean.Token, adminGrantRequest{Code: "guess"})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, string(gateway.KindNotAuthorized), env.ErrorKind)

	resp, _ = do(t, engine, http.MethodPost, "/api/me/admin-grant", dean.Token, adminGrantRequest{Code: testGrantCode})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp, env = do(t, engine, http.MethodGet, "/api/admin/organizations/pending", dean.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	pending := decode[[]struct {
		ID string `json:"id"`
	}](t, env)
	require.Len(t, pending, 1)
	assert.Equal(t, org.ID, pending[0].ID)

	resp, _ = do(t, engine, http.MethodPost, "/api/admin/organizations/"+org.ID+"/approve", dean.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// member requests to join; a second request is a duplicate.
	resp, _ = do(t, engine, http.MethodPost, "/api/organizations/"+org.ID+"/join", member.Token, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp, env = do(t, engine, http.MethodPost, "/api/organizations/"+org.ID+"/join", member.Token, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(gateway.KindDuplicateMembership), env.ErrorKind)

	// The owner sees the request and was notified about it.
	resp, env = do(t, engine, http.MethodGet, "/api/admin/memberships/pending", owner.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	requests := decode[[]struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}](t, env)
	require.Len(t, requests, 1)
	assert.Equal(t, member.ID, requests[0].UserID)
	assert.Equal(t, "member@example.edu", requests[0].Email)

	resp, env = do(t, engine, http.MethodGet, "/api/me/notifications", owner.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	notes := decode[[]struct {
		Kind string `json:"kind"`
	}](t, env)
	kinds := make([]string, 0, len(notes))
	for _, n := range notes {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, "membership.requested")
	assert.Contains(t, kinds, "organization.approved")

	// Only the organization admin may decide.
	memberPath := "/api/admin/organizations/" + org.ID + "/members/" + member.ID
	resp, _ = do(t, engine, http.MethodPost, memberPath+"/approve", member.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp, env = do(t, engine, http.MethodPost, memberPath+"/approve", owner.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	approved := decode[struct {
		Status string `json:"status"`
	}](t, env)
	assert.Equal(t, "approved", approved.Status)

	resp, env = do(t, engine, http.MethodPost, memberPath+"/reject", owner.Token, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(gateway.KindConflict), env.ErrorKind)

	resp, env = do(t, engine, http.MethodGet, "/api/me/organizations", member.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	mine := decode[[]struct {
		MembershipStatus string `json:"membership_status"`
		Organization     struct {
			ID string `json:"id"`
		} `json:"organization"`
	}](t, env)
	require.Len(t, mine, 1)
	assert.Equal(t, org.ID, mine[0].Organization.ID)
	assert.Equal(t, "approved", mine[0].MembershipStatus)

	// Audit logs are visible to global admins only.
	resp, _ = do(t, engine, http.MethodGet, "/api/admin/audit-logs?action=admin.grant.attempt", owner.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp, env = do(t, engine, http.MethodGet, "/api/admin/audit-logs?action=admin.grant.attempt", dean.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	attempts := decode[[]json.RawMessage](t, env)
	assert.Len(t, attempts, 2)
}

func TestMissingMembershipDecisionIsNotFound(t *testing.T) {
	engine := newTestServer(t)
	owner := register(t, engine, "owner@example.edu")
	stranger := register(t, engine, "stranger@example.edu")

	resp, env := do(t, engine, http.MethodPost, "/api/organizations", owner.Token, createOrganizationRequest{
		Name:        "Film Society",
		Type:        "official_student",
		Description: "Screenings every Thursday",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	org := decode[struct {
		ID string `json:"id"`
	}](t, env)

	resp, env = do(t, engine, http.MethodPost, "/api/admin/organizations/"+org.ID+"/members/"+stranger.ID+"/approve", owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, string(gateway.KindNotFound), env.ErrorKind)
}

func TestAdminGrantIsThrottledAfterBurst(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	engine := newTestServerWithLimiter(t, ratelimit.NewLimiter(client, zaptest.NewLogger(t)))
	dean := register(t, engine, "dean.throttle@gram.edu")

	for i := 0; i < 5; i++ {
		resp, env := do(t, engine, http.MethodPost, "/api/me/admin-grant", dean.Token, adminGrantRequest{Code: "guess"})
		require.Equal(t, http.StatusForbidden, resp.Code, "attempt %d", i+1)
		assert.Equal(t, string(gateway.KindNotAuthorized), env.ErrorKind)
	}

	// Even the right code is refused once the bucket is empty.
	resp, env := do(t, engine, http.MethodPost, "/api/me/admin-grant", dean.Token, adminGrantRequest{Code: testGrantCode})
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, string(gateway.KindRateLimited), env.ErrorKind)
}

func TestLoginCookieAuthenticatesRequests(t *testing.T) {
	engine := newTestServer(t)
	register(t, engine, "cookie@gram.edu")

	resp, _ := do(t, engine, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "cookie@gram.edu",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var sessionCookie *http.Cookie
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == "tigerlife_session" {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie.Name, Value: sessionCookie.Value})
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
