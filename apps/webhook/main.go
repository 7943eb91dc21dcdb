package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/sorteops/relatorio/internal/clock"
	"github.com/sorteops/relatorio/internal/config"
	"github.com/sorteops/relatorio/internal/edition"
	"github.com/sorteops/relatorio/internal/importer"
	"github.com/sorteops/relatorio/internal/logger"
	"github.com/sorteops/relatorio/internal/migration"
	"github.com/sorteops/relatorio/internal/pipeline"
	"github.com/sorteops/relatorio/internal/report"
	"github.com/sorteops/relatorio/internal/server"
	"github.com/sorteops/relatorio/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		edition.Module,
		importer.Module,
		report.Module,
		pipeline.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
