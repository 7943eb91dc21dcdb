package edition

import (
	"strings"
	"time"

	"github.com/sorteops/relatorio/internal/config"
)

// DefaultDrawTime is used on the persistence path when a code has no
// schedule entry. The gate instead treats an unknown code as unconstrained.
const DefaultDrawTime = 12 * time.Hour

// Schedule is the precedence-ordered draw table. Matching walks entries in
// declared order, so a short code never shadows a longer one that shares its
// prefix (PT after PTV/PTN/PTM).
type Schedule struct {
	holder *config.ScheduleHolder
}

func NewSchedule(holder *config.ScheduleHolder) *Schedule {
	return &Schedule{holder: holder}
}

// ExtractCanonicalCode resolves a raw code label ("PT ESPECIAL", "PPT EXTRA")
// to its canonical code. Returns "" when no entry matches.
func (s *Schedule) ExtractCanonicalCode(label string) string {
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == "" {
		return ""
	}
	for _, entry := range s.holder.Get().Entries {
		if strings.HasPrefix(label, entry.Code) {
			return entry.Code
		}
	}
	return ""
}

// DrawTime returns the scheduled time of day for a canonical code as an
// offset from midnight. Unknown codes report ok=false.
func (s *Schedule) DrawTime(code string) (time.Duration, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, entry := range s.holder.Get().Entries {
		if entry.Code == code {
			return parseDrawTime(entry.DrawTime), true
		}
	}
	return 0, false
}

// DrawTimeOrDefault is the persistence-path lookup: codes outside the table
// close at noon instead of blocking the import.
func (s *Schedule) DrawTimeOrDefault(code string) time.Duration {
	// The import path matches by substring, not prefix: the extracted code
	// may carry qualifiers on either side.
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, entry := range s.holder.Get().Entries {
		if strings.Contains(code, entry.Code) {
			return parseDrawTime(entry.DrawTime)
		}
	}
	return DefaultDrawTime
}

// NextDrawAfter returns the earliest scheduled draw strictly after the given
// time of day, across all codes. ok=false when no draw remains today.
func (s *Schedule) NextDrawAfter(tod time.Duration) (string, time.Duration, bool) {
	var (
		bestCode string
		bestTime time.Duration
		found    bool
	)
	for _, entry := range s.holder.Get().Entries {
		dt := parseDrawTime(entry.DrawTime)
		if dt <= tod {
			continue
		}
		if !found || dt < bestTime {
			bestCode = entry.Code
			bestTime = dt
			found = true
		}
	}
	return bestCode, bestTime, found
}

func parseDrawTime(raw string) time.Duration {
	t, err := time.Parse("15:04:05", raw)
	if err != nil {
		return DefaultDrawTime
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}
