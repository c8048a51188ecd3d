package auth

import (
	"github.com/smallbiznis/tigerlife/internal/auth/repository"
	"github.com/smallbiznis/tigerlife/internal/auth/service"
	"github.com/smallbiznis/tigerlife/internal/auth/session"
	"github.com/smallbiznis/tigerlife/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(token.NewIssuer),
	fx.Provide(service.New),
	session.Module,
)
