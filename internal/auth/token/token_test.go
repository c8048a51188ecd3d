package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tigerlife/internal/clock"
	"github.com/smallbiznis/tigerlife/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC))
	issuer := New([]byte("test-secret"), time.Hour, clk)

	raw, issued, err := issuer.Issue(snowflake.ID(42), "tiger@gram.edu")
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(42), userID)
	assert.Equal(t, "tiger@gram.edu", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC))
	issuer := New([]byte("test-secret"), time.Hour, clk)

	raw, _, err := issuer.Issue(snowflake.ID(7), "a@gram.edu")
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	raw, _, err := New([]byte("secret-a"), time.Hour, nil).Issue(snowflake.ID(1), "a@gram.edu")
	require.NoError(t, err)

	_, err = New([]byte("secret-b"), time.Hour, nil).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = New([]byte("secret-b"), time.Hour, nil).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRequiresSecretInProduction(t *testing.T) {
	_, err := NewIssuer(config.Config{Environment: "production"}, clock.SystemClock{}, zaptest.NewLogger(t))
	assert.Error(t, err)

	issuer, err := NewIssuer(config.Config{Environment: "development"}, clock.SystemClock{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotEmpty(t, issuer.secret)
}
