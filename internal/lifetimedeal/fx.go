package lifetimedeal

import (
	"github.com/stackspendlabs/stackspend/internal/lifetimedeal/repository"
	"github.com/stackspendlabs/stackspend/internal/lifetimedeal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lifetimedeal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
