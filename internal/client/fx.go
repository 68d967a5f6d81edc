package client

import (
	"github.com/stackspendlabs/stackspend/internal/client/repository"
	"github.com/stackspendlabs/stackspend/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
