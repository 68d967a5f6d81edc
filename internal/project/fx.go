package project

import (
	"github.com/stackspendlabs/stackspend/internal/project/repository"
	"github.com/stackspendlabs/stackspend/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
