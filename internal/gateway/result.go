// Package gateway is the single entry point the HTTP layer uses to reach the
// registry, the membership workflow and the authorization guard. Every call
// returns a Result and never panics across the boundary.
package gateway

import (
	"errors"

	auditdomain "github.com/smallbiznis/tigerlife/internal/audit/domain"
	authdomain "github.com/smallbiznis/tigerlife/internal/auth/domain"
	"github.com/smallbiznis/tigerlife/internal/authorization"
	membershipdomain "github.com/smallbiznis/tigerlife/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/tigerlife/internal/notification/domain"
	orgdomain "github.com/smallbiznis/tigerlife/internal/organization/domain"
	"github.com/smallbiznis/tigerlife/internal/ratelimit"
)

type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_error"
	KindDuplicateMembership ErrorKind = "duplicate_membership"
	KindNotAuthorized       ErrorKind = "not_authorized"
	KindNotFound            ErrorKind = "not_found"
	KindRemote              ErrorKind = "remote_error"
	KindConflict            ErrorKind = "conflict"
	KindUnauthenticated     ErrorKind = "unauthenticated"
	KindRateLimited         ErrorKind = "rate_limited"
)

// Result is the envelope returned by every gateway operation. Data is only
// meaningful when Success is true.
type Result[T any] struct {
	Success      bool      `json:"success"`
	Data         T         `json:"data"`
	Error        *string   `json:"error"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	RequestToken string    `json:"request_token,omitempty"`
}

func success[T any](data T, requestToken string) Result[T] {
	return Result[T]{Success: true, Data: data, RequestToken: requestToken}
}

func failure[T any](kind ErrorKind, message, requestToken string) Result[T] {
	return Result[T]{Error: &message, ErrorKind: kind, RequestToken: requestToken}
}

// Classify maps a domain error onto the gateway taxonomy. Unknown errors are
// remote errors.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, membershipdomain.ErrDuplicateMembership):
		return KindDuplicateMembership
	case isValidation(err):
		return KindValidation
	case errors.Is(err, authorization.ErrNotAuthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return KindNotAuthorized
	case errors.Is(err, orgdomain.ErrNotFound),
		errors.Is(err, membershipdomain.ErrNotFound),
		errors.Is(err, notificationdomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, orgdomain.ErrNotPending),
		errors.Is(err, membershipdomain.ErrNotPending),
		errors.Is(err, membershipdomain.ErrOrganizationNotApproved),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, authdomain.ErrGNumberMismatch):
		return KindConflict
	case errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return KindUnauthenticated
	case errors.Is(err, ratelimit.ErrRateLimited):
		return KindRateLimited
	default:
		return KindRemote
	}
}

func isValidation(err error) bool {
	switch {
	case errors.Is(err, orgdomain.ErrInvalidName),
		errors.Is(err, orgdomain.ErrInvalidDescription),
		errors.Is(err, orgdomain.ErrInvalidType),
		errors.Is(err, orgdomain.ErrInvalidStatus),
		errors.Is(err, orgdomain.ErrInvalidUser),
		errors.Is(err, membershipdomain.ErrInvalidUser),
		errors.Is(err, notificationdomain.ErrInvalidNotification),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrWeakPassword),
		errors.Is(err, authdomain.ErrInvalidGNumber):
		return true
	default:
		return false
	}
}

// message is the user-visible text for err. Remote errors are not echoed.
func message(kind ErrorKind, err error) string {
	if kind == KindRemote {
		return "the request could not be completed, please try again"
	}
	return err.Error()
}
