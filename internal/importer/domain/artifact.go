package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ArtifactPrefix and ArtifactSuffix frame every sales export filename.
	ArtifactPrefix = "relatorio-vendas-"
	ArtifactSuffix = ".csv"
)

// codeMarkers delimit the canonical code inside a slugged title, checked in
// order: a region marker first, then the edition marker.
var codeMarkers = []string{" RJ ", " EDICAO "}

// CodeFromArtifact extracts the canonical draw code from an artifact name:
// strip prefix and suffix, hyphens to spaces, uppercase, then take the text
// before the first known marker.
func CodeFromArtifact(name string) (string, error) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, ArtifactPrefix) {
		return "", fmt.Errorf("%w: unexpected artifact name %q", ErrCodeExtraction, base)
	}

	text := strings.TrimPrefix(base, ArtifactPrefix)
	text = strings.TrimSuffix(text, ArtifactSuffix)
	text = strings.ToUpper(strings.ReplaceAll(text, "-", " "))

	for _, marker := range codeMarkers {
		if i := strings.Index(text, marker); i >= 0 {
			return strings.TrimSpace(text[:i]), nil
		}
	}
	return "", fmt.Errorf("%w: no region or edition marker in %q", ErrCodeExtraction, base)
}
