package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/sorteops/relatorio/internal/browser"
	"github.com/sorteops/relatorio/internal/clock"
	"github.com/sorteops/relatorio/internal/config"
	"github.com/sorteops/relatorio/internal/download"
	"github.com/sorteops/relatorio/internal/importer/domain"
	"github.com/sorteops/relatorio/internal/report"
	"github.com/sorteops/relatorio/internal/transform"
	"github.com/sorteops/relatorio/pkg/telemetry"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeEditionNotFound Outcome = "edition_not_found"
	OutcomeFailed          Outcome = "failed"
)

// Result is the terminal state of one pipeline run. Stage names the failing
// step for OutcomeFailed; Import is set once the persistence step ran.
type Result struct {
	RunID   string
	Outcome Outcome
	Stage   string
	Import  *domain.Outcome
	Err     error
}

// Driver is the authenticated browser session a run drives.
type Driver interface {
	Establish(ctx context.Context, creds browser.Credentials) error
	Navigate(target browser.Target) error
	ForceDownloadClick(ctx context.Context) error
	Close()
}

// Finder locates an edition's sales report inside an established session.
type Finder interface {
	Search(editionID int64) error
	ExtractTitle() (string, error)
}

// SessionFactory builds a fresh session pair for each run. Sessions are
// never shared between runs.
type SessionFactory func() (Driver, Finder)

// Orchestrator sequences one edition through scrape, parse, render and
// import. Session teardown and artifact removal are guaranteed on every
// path.
type Orchestrator struct {
	cfg        config.Config
	log        *zap.Logger
	clk        clock.Clock
	factory    SessionFactory
	importer   domain.Service
	renderer   report.Provider
	metrics    *telemetry.Metrics
	watcherCfg download.Config
}

// Run executes the full pipeline for one edition.
func (o *Orchestrator) Run(ctx context.Context, editionID int64) Result {
	runID := uuid.NewString()
	log := o.log.With(
		zap.String("run_id", runID),
		zap.Int64("edition", editionID),
	)
	start := o.clk.Now()

	log.Info("pipeline run started")
	res := o.run(ctx, log, editionID)
	res.RunID = runID

	code := ""
	if res.Import != nil {
		code = res.Import.Code
	}
	elapsed := o.clk.Now().Sub(start)
	o.metrics.ObserveRun(string(res.Outcome), code, elapsed)

	if res.Err != nil {
		log.Error("pipeline run finished",
			zap.String("outcome", string(res.Outcome)),
			zap.String("stage", res.Stage),
			zap.Duration("elapsed", elapsed),
			zap.Error(res.Err),
		)
	} else {
		log.Info("pipeline run finished",
			zap.String("outcome", string(res.Outcome)),
			zap.Duration("elapsed", elapsed),
		)
	}
	return res
}

func (o *Orchestrator) run(ctx context.Context, log *zap.Logger, editionID int64) Result {
	driver, finder := o.factory()
	defer driver.Close()

	var artifactPath string
	defer func() {
		if artifactPath == "" {
			return
		}
		if err := os.Remove(artifactPath); err != nil {
			log.Warn("artifact cleanup failed",
				zap.String("path", artifactPath),
				zap.Error(err),
			)
			return
		}
		log.Info("artifact removed", zap.String("path", artifactPath))
	}()

	creds := browser.Credentials{
		Email:    o.cfg.LoginEmail,
		Password: o.cfg.LoginPassword,
	}
	if err := driver.Establish(ctx, creds); err != nil {
		return o.fail("session", err)
	}
	if err := driver.Navigate(browser.DrawsMenu); err != nil {
		return o.fail("navigate", err)
	}

	if err := finder.Search(editionID); err != nil {
		if errors.Is(err, browser.ErrEditionNotFound) {
			return Result{Outcome: OutcomeEditionNotFound, Err: err}
		}
		return o.fail("search", err)
	}

	title, err := finder.ExtractTitle()
	if err != nil {
		return o.fail("title", err)
	}
	artifactName := domain.ArtifactPrefix + slug.Make(title) + domain.ArtifactSuffix

	watcher := download.NewWatcher(o.cfg.DownloadDir, o.watcherCfg, driver.ForceDownloadClick, log)
	path, err := watcher.Await(ctx, artifactName, editionID)
	if err != nil {
		return o.fail("download", err)
	}
	artifactPath = path

	rows, err := o.parseArtifact(path)
	if err != nil {
		return o.fail("parse", err)
	}

	// rendering is best-effort, a broken PDF never sinks the run
	o.render(ctx, log, title, path, transform.Aggregate(rows))

	outcome, err := o.importer.Import(ctx, domain.ImportRequest{
		Edition:      editionID,
		ArtifactName: filepath.Base(path),
		Rows:         rows,
	})
	if err != nil {
		res := o.fail("import", err)
		res.Import = &outcome
		return res
	}
	if outcome.Status == domain.StatusImported {
		o.metrics.AddSalesImported(outcome.RowCount)
	}
	return Result{Outcome: OutcomeCompleted, Import: &outcome}
}

func (o *Orchestrator) parseArtifact(path string) ([]transform.SaleRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return transform.Parse(f)
}

func (o *Orchestrator) render(ctx context.Context, log *zap.Logger, title, artifactPath string, buyers []transform.AggregatedBuyer) {
	// the rendered report leaves the system, never with raw phone numbers
	for i := range buyers {
		buyers[i].Phone = transform.MaskPhone(buyers[i].Phone)
	}

	out, err := o.renderer.GenerateSalesReport(ctx, report.Data{
		Title:  title,
		Buyers: buyers,
	})
	if err != nil {
		log.Warn("report rendering failed", zap.Error(err))
		return
	}
	if out == nil {
		return
	}

	pdfPath := strings.TrimSuffix(artifactPath, domain.ArtifactSuffix) + ".pdf"
	doc, err := io.ReadAll(out)
	if err != nil {
		log.Warn("report rendering failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(pdfPath, doc, 0o644); err != nil {
		log.Warn("report write failed", zap.String("path", pdfPath), zap.Error(err))
		return
	}
	log.Info("report rendered", zap.String("path", pdfPath))
}

func (o *Orchestrator) fail(stage string, err error) Result {
	o.metrics.RecordStageError(stage)
	return Result{Outcome: OutcomeFailed, Stage: stage, Err: err}
}
