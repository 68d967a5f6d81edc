package activity

import (
	"github.com/stackspendlabs/stackspend/internal/activity/repository"
	"github.com/stackspendlabs/stackspend/internal/activity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
