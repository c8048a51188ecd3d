package notification

import (
	"github.com/smallbiznis/tigerlife/internal/notification/domain"
	"github.com/smallbiznis/tigerlife/internal/notification/publisher"
	"github.com/smallbiznis/tigerlife/internal/notification/repository"
	"github.com/smallbiznis/tigerlife/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(publisher.New),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Notifier { return svc }),
)
