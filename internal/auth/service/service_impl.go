package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tigerlife/internal/auth/domain"
	"github.com/smallbiznis/tigerlife/internal/auth/password"
	"github.com/smallbiznis/tigerlife/internal/auth/token"
	"github.com/smallbiznis/tigerlife/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const minPasswordLength = 8

var gNumberPattern = regexp.MustCompile(`^G\d{8}$`)

type Params struct {
	fx.In

	Log         *zap.Logger
	Repo        domain.Repository
	RevokedRepo domain.RevokedTokenRepository
	Tokens      *token.Issuer
	GenID       *snowflake.Node
	Clock       clock.Clock
}

type Service struct {
	log         *zap.Logger
	repo        domain.Repository
	revokedRepo domain.RevokedTokenRepository
	tokens      *token.Issuer
	genID       *snowflake.Node
	clock       clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("auth.service"),
		repo:        p.Repo,
		revokedRepo: p.RevokedRepo,
		tokens:      p.Tokens,
		genID:       p.GenID,
		clock:       p.Clock,
	}
}

func (s *Service) SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	gNumber := normalizeGNumber(req.GNumber)
	if gNumber != "" && !gNumberPattern.MatchString(gNumber) {
		return nil, domain.ErrInvalidGNumber
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		GNumber:      gNumber,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *Service) SignInWithPassword(ctx context.Context, email, rawPassword string) (*domain.LoginResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil || strings.TrimSpace(rawPassword) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(rawPassword, user.PasswordHash) {
		s.log.Info("sign in rejected", zap.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}

	signed, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		User:      user,
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) GetSession(ctx context.Context, rawToken string) (*domain.Session, error) {
	claims, err := s.parse(rawToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revokedRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, domain.ErrSessionRevoked
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.ErrInvalidSession
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	return &domain.Session{
		UserID:    user.ID,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		Verified:  user.Verified,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) SignOut(ctx context.Context, rawToken string) error {
	claims, err := s.parse(rawToken)
	if err != nil {
		return err
	}
	userID, err := claims.UserID()
	if err != nil {
		return domain.ErrInvalidSession
	}

	return s.revokedRepo.Revoke(ctx, domain.RevokedToken{
		JTI:       claims.ID,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: s.clock.Now(),
	})
}

func (s *Service) GetUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// VerifyStudent marks the account verified when gNumber matches the one on file.
// Accounts registered without a G-number adopt the supplied one.
func (s *Service) VerifyStudent(ctx context.Context, userID snowflake.ID, gNumber string) (*domain.User, error) {
	gNumber = normalizeGNumber(gNumber)
	if !gNumberPattern.MatchString(gNumber) {
		return nil, domain.ErrInvalidGNumber
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.GNumber != "" && user.GNumber != gNumber {
		s.log.Info("student verification rejected", zap.String("user_id", userID.String()))
		return nil, domain.ErrGNumberMismatch
	}

	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{
		"g_number":   gNumber,
		"verified":   true,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}

	user.GNumber = gNumber
	user.Verified = true
	user.UpdatedAt = now
	return user, nil
}

func (s *Service) SetAdmin(ctx context.Context, userID snowflake.ID) error {
	return s.repo.UpdateFields(ctx, userID, map[string]any{
		"is_admin":   true,
		"updated_at": s.clock.Now(),
	})
}

func (s *Service) parse(rawToken string) (*token.Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, domain.ErrInvalidSession
	}
	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			return nil, domain.ErrSessionExpired
		}
		return nil, domain.ErrInvalidSession
	}
	return claims, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func normalizeGNumber(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
