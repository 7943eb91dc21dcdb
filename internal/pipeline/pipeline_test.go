package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sorteops/relatorio/internal/browser"
	"github.com/sorteops/relatorio/internal/clock"
	"github.com/sorteops/relatorio/internal/config"
	"github.com/sorteops/relatorio/internal/download"
	"github.com/sorteops/relatorio/internal/importer/domain"
	"github.com/sorteops/relatorio/internal/report"
)

const artifactCSV = "Nome;Telefone;Quantidade;Valor;Data da Compra;Aprovado por;Host do Pagamento;Números\n" +
	"Ana Souza;(21) 99999-0001;2;10,00;02/01/2024, 10:00:00;admin;pix;1, 2\n"

type fakeDriver struct {
	establishErr error
	navigateErr  error
	triggers     int
	closed       bool
}

func (d *fakeDriver) Establish(ctx context.Context, creds browser.Credentials) error {
	return d.establishErr
}

func (d *fakeDriver) Navigate(target browser.Target) error {
	return d.navigateErr
}

func (d *fakeDriver) ForceDownloadClick(ctx context.Context) error {
	d.triggers++
	return nil
}

func (d *fakeDriver) Close() {
	d.closed = true
}

type fakeFinder struct {
	searchErr error
	title     string
	titleErr  error
}

func (f *fakeFinder) Search(editionID int64) error {
	return f.searchErr
}

func (f *fakeFinder) ExtractTitle() (string, error) {
	return f.title, f.titleErr
}

type fakeImporter struct {
	outcome domain.Outcome
	err     error
	gotReq  domain.ImportRequest
}

func (i *fakeImporter) Import(ctx context.Context, req domain.ImportRequest) (domain.Outcome, error) {
	i.gotReq = req
	return i.outcome, i.err
}

func newOrchestrator(t *testing.T, dir string, driver *fakeDriver, finder *fakeFinder, importer *fakeImporter) *Orchestrator {
	t.Helper()
	return &Orchestrator{
		cfg: config.Config{
			LoginEmail:    "ops@example.com",
			LoginPassword: "secret",
			DownloadDir:   dir,
		},
		log:      zap.NewNop(),
		clk:      clock.NewFakeClock(time.Date(2024, 5, 10, 8, 0, 0, 0, time.Local)),
		factory:  func() (Driver, Finder) { return driver, finder },
		importer: importer,
		renderer: &report.NoOpProvider{},
		watcherCfg: download.Config{
			Ticks:        4,
			TickInterval: 10 * time.Millisecond,
		},
	}
}

func placeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(artifactCSV), 0o644))
	return path
}

func TestRunCompleted(t *testing.T) {
	dir := t.TempDir()
	driver := &fakeDriver{}
	finder := &fakeFinder{title: "PTV RJ EDICAO 5877"}
	importer := &fakeImporter{outcome: domain.Outcome{
		Status:   domain.StatusImported,
		Edition:  5877,
		Code:     "PTV",
		RowCount: 1,
	}}
	path := placeArtifact(t, dir, "relatorio-vendas-ptv-rj-edicao-5877.csv")

	res := newOrchestrator(t, dir, driver, finder, importer).Run(context.Background(), 5877)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.NotEmpty(t, res.RunID)
	require.NotNil(t, res.Import)
	assert.Equal(t, domain.StatusImported, res.Import.Status)

	assert.Equal(t, "relatorio-vendas-ptv-rj-edicao-5877.csv", importer.gotReq.ArtifactName)
	require.Len(t, importer.gotReq.Rows, 1)
	assert.Equal(t, "Ana Souza", importer.gotReq.Rows[0].Name)

	assert.True(t, driver.closed)
	assert.NoFileExists(t, path)
}

type captureRenderer struct {
	got report.Data
}

func (r *captureRenderer) GenerateSalesReport(ctx context.Context, data report.Data) (io.Reader, error) {
	r.got = data
	return nil, nil
}

func TestRunMasksPhonesInRenderedReport(t *testing.T) {
	dir := t.TempDir()
	driver := &fakeDriver{}
	finder := &fakeFinder{title: "PTV RJ EDICAO 5877"}
	importer := &fakeImporter{outcome: domain.Outcome{Status: domain.StatusImported, Edition: 5877}}
	placeArtifact(t, dir, "relatorio-vendas-ptv-rj-edicao-5877.csv")

	renderer := &captureRenderer{}
	orch := newOrchestrator(t, dir, driver, finder, importer)
	orch.renderer = renderer

	res := orch.Run(context.Background(), 5877)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	require.Len(t, renderer.got.Buyers, 1)
	assert.Equal(t, "(21) 99***-**01", renderer.got.Buyers[0].Phone)
	// persistence keeps the raw row; masking there is the importer's job
	require.Len(t, importer.gotReq.Rows, 1)
	assert.Equal(t, "(21) 99999-0001", importer.gotReq.Rows[0].Phone)
}

func TestRunEditionNotFound(t *testing.T) {
	dir := t.TempDir()
	driver := &fakeDriver{}
	finder := &fakeFinder{
		searchErr: fmt.Errorf("%w: edition 99 has no purchases control", browser.ErrEditionNotFound),
	}

	res := newOrchestrator(t, dir, driver, finder, &fakeImporter{}).Run(context.Background(), 99)

	assert.Equal(t, OutcomeEditionNotFound, res.Outcome)
	assert.ErrorIs(t, res.Err, browser.ErrEditionNotFound)
	assert.True(t, driver.closed)
}

func TestRunAuthFailure(t *testing.T) {
	dir := t.TempDir()
	driver := &fakeDriver{establishErr: browser.ErrAuth}

	res := newOrchestrator(t, dir, driver, &fakeFinder{}, &fakeImporter{}).Run(context.Background(), 5877)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "session", res.Stage)
	assert.True(t, driver.closed)
}

func TestRunDownloadTimeoutTriggersForcedClick(t *testing.T) {
	dir := t.TempDir()
	driver := &fakeDriver{}
	finder := &fakeFinder{title: "PTV RJ EDICAO 5877"}

	res := newOrchestrator(t, dir, driver, finder, &fakeImporter{}).Run(context.Background(), 5877)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "download", res.Stage)
	assert.ErrorIs(t, res.Err, download.ErrTimeout)
	assert.Equal(t, 1, driver.triggers)
}

func TestRunImportFailureStillRemovesArtifact(t *testing.T) {
	dir := t.TempDir()
	driver := &fakeDriver{}
	finder := &fakeFinder{title: "PTV RJ EDICAO 5877"}
	importer := &fakeImporter{
		outcome: domain.Outcome{Status: domain.StatusFailed, Edition: 5877},
		err:     errors.New("persistence_failed: connection reset"),
	}
	path := placeArtifact(t, dir, "relatorio-vendas-ptv-rj-edicao-5877.csv")

	res := newOrchestrator(t, dir, driver, finder, importer).Run(context.Background(), 5877)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "import", res.Stage)
	assert.NoFileExists(t, path)
	assert.True(t, driver.closed)
}
