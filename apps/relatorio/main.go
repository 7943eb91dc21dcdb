package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/sorteops/relatorio/internal/clock"
	"github.com/sorteops/relatorio/internal/config"
	"github.com/sorteops/relatorio/internal/edition"
	"github.com/sorteops/relatorio/internal/importer"
	"github.com/sorteops/relatorio/internal/logger"
	"github.com/sorteops/relatorio/internal/pipeline"
	"github.com/sorteops/relatorio/internal/report"
	"github.com/sorteops/relatorio/pkg/db"
)

const runTimeout = 15 * time.Minute

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: relatorio <edition>")
		os.Exit(2)
	}
	editionID, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid edition %q\n", os.Args[1])
		os.Exit(2)
	}

	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		edition.Module,
		importer.Module,
		report.Module,
		pipeline.Module,

		fx.Invoke(func(lc fx.Lifecycle, orch *pipeline.Orchestrator, shutdowner fx.Shutdowner) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						runCtx, cancel := context.WithTimeout(context.Background(), runTimeout)
						defer cancel()

						res := orch.Run(runCtx, editionID)
						code := 0
						switch res.Outcome {
						case pipeline.OutcomeEditionNotFound:
							// stable marker consumed by calling scripts
							fmt.Printf("EDITION_NOT_FOUND %d\n", editionID)
							code = 3
						case pipeline.OutcomeFailed:
							code = 1
						}
						_ = shutdowner.Shutdown(fx.ExitCode(code))
					}()
					return nil
				},
			})
		}),
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
