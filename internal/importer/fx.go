package importer

import (
	"github.com/sorteops/relatorio/internal/importer/repository"
	"github.com/sorteops/relatorio/internal/importer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("importer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
