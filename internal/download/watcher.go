package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrTimeout = errors.New("download_timeout")

// TriggerFunc is the active-trigger fallback: programmatically activate any
// visible download-capable element to recover a silently failed download.
type TriggerFunc func(ctx context.Context) error

// Config bounds the watch loop. Zero values fall back to the defaults the
// panel's download behavior was measured against.
type Config struct {
	Ticks        int           // polling attempts, default 20
	TickInterval time.Duration // default 1s
	Recency      time.Duration // max age for fallback matches, default 3m
}

func (c Config) withDefaults() Config {
	if c.Ticks <= 0 {
		c.Ticks = 20
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.Recency <= 0 {
		c.Recency = 3 * time.Minute
	}
	return c
}

// Watcher polls the download directory for the produced artifact. Exact-name
// matching is unreliable because the panel's title-to-filename slugification
// drifts, so the fallback accepts any recent report file carrying the
// edition id.
type Watcher struct {
	dir     string
	cfg     Config
	trigger TriggerFunc
	log     *zap.Logger
}

func NewWatcher(dir string, cfg Config, trigger TriggerFunc, log *zap.Logger) *Watcher {
	return &Watcher{
		dir:     dir,
		cfg:     cfg.withDefaults(),
		trigger: trigger,
		log:     log.Named("download.watcher"),
	}
}

// Await blocks until the artifact shows up or the tick budget is exhausted.
func (w *Watcher) Await(ctx context.Context, expectedName string, editionID int64) (string, error) {
	expected := filepath.Join(w.dir, expectedName)
	idToken := strconv.FormatInt(editionID, 10)

	w.log.Info("awaiting download",
		zap.String("expected", expectedName),
		zap.Int64("edition", editionID),
	)

	for tick := 0; tick < w.cfg.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if _, err := os.Stat(expected); err == nil {
			w.log.Info("artifact found by exact name", zap.Int("tick", tick))
			return expected, nil
		}

		if tick == w.cfg.Ticks/2 && w.trigger != nil {
			// halfway through the budget, assume the download silently
			// failed and force it once
			w.log.Info("forcing download trigger", zap.Int("tick", tick))
			if err := w.trigger(ctx); err != nil {
				w.log.Warn("download trigger failed", zap.Error(err))
			}
		}

		if path, ok := w.scan(idToken); ok {
			w.log.Info("artifact found by recency scan",
				zap.Int("tick", tick),
				zap.String("path", path),
			)
			return path, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(w.cfg.TickInterval):
		}
	}

	candidates := w.candidates()
	w.log.Error("artifact never arrived",
		zap.String("expected", expectedName),
		zap.Strings("candidates", candidates),
	)
	return "", fmt.Errorf("%w: %s not downloaded, candidates %v", ErrTimeout, expectedName, candidates)
}

// scan looks for any report file modified within the recency window whose
// name contains the edition id.
func (w *Watcher) scan(idToken string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(w.dir, "relatorio-vendas-*.csv"))
	if err != nil {
		return "", false
	}

	now := time.Now()
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > w.cfg.Recency {
			continue
		}
		if strings.Contains(filepath.Base(path), idToken) {
			return path, true
		}
	}
	return "", false
}

func (w *Watcher) candidates() []string {
	matches, _ := filepath.Glob(filepath.Join(w.dir, "*.csv"))
	names := make([]string, 0, len(matches))
	for _, path := range matches {
		names = append(names, filepath.Base(path))
	}
	return names
}
