package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tigerlife/internal/auth/domain"
	"github.com/smallbiznis/tigerlife/internal/auth/repository"
	"github.com/smallbiznis/tigerlife/internal/auth/token"
	"github.com/smallbiznis/tigerlife/internal/clock"
	"github.com/smallbiznis/tigerlife/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) (authdomain.Service, *clock.FakeClock) {
	t.Helper()

	conn := db.NewTest(t, &authdomain.User{}, &authdomain.RevokedToken{})
	repo, revokedRepo := repository.New(conn)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Now())
	svc := New(Params{
		Log:         zaptest.NewLogger(t),
		Repo:        repo,
		RevokedRepo: revokedRepo,
		Tokens:      token.New([]byte("test-secret"), time.Hour, clk),
		GenID:       node,
		Clock:       clk,
	})
	return svc, clk
}

func signUp(t *testing.T, svc authdomain.Service, email string) *authdomain.User {
	t.Helper()
	user, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:     email,
		Password:  "correct-password",
		FirstName: "Tiger",
		LastName:  "Student",
		GNumber:   "G00123456",
	})
	require.NoError(t, err)
	return user
}

func TestSignUpDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	user := signUp(t, svc, " Alice@Gram.EDU ")
	assert.Equal(t, "alice@gram.edu", user.Email)
	assert.False(t, user.Verified)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "correct-password", user.PasswordHash)
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, authdomain.SignUpRequest{Email: "not-an-email", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)

	_, err = svc.SignUp(ctx, authdomain.SignUpRequest{Email: "a@gram.edu", Password: "short"})
	assert.ErrorIs(t, err, authdomain.ErrWeakPassword)

	_, err = svc.SignUp(ctx, authdomain.SignUpRequest{Email: "a@gram.edu", Password: "long-enough", GNumber: "123"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidGNumber)

	signUp(t, svc, "dup@gram.edu")
	_, err = svc.SignUp(ctx, authdomain.SignUpRequest{Email: "DUP@gram.edu", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	signUp(t, svc, "alice@gram.edu")

	_, err := svc.SignInWithPassword(context.Background(), "alice@gram.edu", "wrong-password")
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = svc.SignInWithPassword(context.Background(), "nobody@gram.edu", "correct-password")
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestSessionRoundTripAndSignOut(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := signUp(t, svc, "bob@gram.edu")

	login, err := svc.SignInWithPassword(ctx, "bob@gram.edu", "correct-password")
	require.NoError(t, err)

	session, err := svc.GetSession(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, "bob@gram.edu", session.Email)
	assert.False(t, session.IsAdmin)

	require.NoError(t, svc.SignOut(ctx, login.Token))
	require.NoError(t, svc.SignOut(ctx, login.Token))

	_, err = svc.GetSession(ctx, login.Token)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
}

func TestSessionExpires(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "carol@gram.edu")

	login, err := svc.SignInWithPassword(ctx, "carol@gram.edu", "correct-password")
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = svc.GetSession(ctx, login.Token)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)

	_, err = svc.GetSession(ctx, "garbage")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)
}

func TestVerifyStudent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := signUp(t, svc, "dana@gram.edu")

	_, err := svc.VerifyStudent(ctx, user.ID, "G99999999")
	assert.ErrorIs(t, err, authdomain.ErrGNumberMismatch)

	_, err = svc.VerifyStudent(ctx, user.ID, "G12")
	assert.ErrorIs(t, err, authdomain.ErrInvalidGNumber)

	verified, err := svc.VerifyStudent(ctx, user.ID, "g00123456")
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	reloaded, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Verified)
	assert.False(t, reloaded.IsAdmin)
}

func TestSetAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := signUp(t, svc, "erin@gram.edu")

	require.NoError(t, svc.SetAdmin(ctx, user.ID))

	reloaded, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAdmin)

	assert.ErrorIs(t, svc.SetAdmin(ctx, snowflake.ID(12345)), authdomain.ErrUserNotFound)
}
