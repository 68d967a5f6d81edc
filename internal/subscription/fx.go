package subscription

import (
	"github.com/stackspendlabs/stackspend/internal/subscription/repository"
	"github.com/stackspendlabs/stackspend/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
