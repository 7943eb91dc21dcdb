package edition

import (
	"errors"
	"fmt"
	"time"

	"github.com/sorteops/relatorio/internal/clock"
	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("edition_not_found")
	ErrUnknownCode       = errors.New("unknown_code")
	ErrScheduleViolation = errors.New("schedule_violation")
)

// DayState positions a draw date relative to the current business day.
type DayState int

const (
	Past DayState = iota
	TodayBeforeDraw
	TodayAtOrAfterDraw
	Future
)

// advisoryThreshold: a today-before-draw request further out than this gets
// a "your report is being generated, wait" advisory attached.
const advisoryThreshold = 2 * time.Hour

// Decision is the outcome of a gate evaluation. Advisory is non-empty only
// for permitted runs the caller should warn about.
type Decision struct {
	State    DayState
	Advisory string
}

// Gate applies the business-time rules deciding when an edition may be
// processed by the event-triggered path.
type Gate struct {
	schedule *Schedule
	clock    clock.Clock
	log      *zap.Logger
}

func NewGate(schedule *Schedule, clk clock.Clock, log *zap.Logger) *Gate {
	return &Gate{
		schedule: schedule,
		clock:    clk,
		log:      log.Named("edition.gate"),
	}
}

// MayProcess evaluates the time-window rule. Every state permits processing;
// TodayBeforeDraw additionally carries an advisory when more than two hours
// remain until the scheduled draw.
func (g *Gate) MayProcess(code string, drawDate time.Time) Decision {
	now := g.clock.Now()
	today := dateOf(now)
	day := dateOf(drawDate)

	switch {
	case day.Before(today):
		return Decision{State: Past}
	case day.After(today):
		return Decision{State: Future}
	}

	drawTime, ok := g.schedule.DrawTime(code)
	if !ok {
		// no schedule entry, no time constraint
		g.log.Warn("no draw time for code", zap.String("code", code))
		return Decision{State: TodayAtOrAfterDraw}
	}

	tod := timeOfDay(now)
	if tod >= drawTime {
		return Decision{State: TodayAtOrAfterDraw}
	}

	decision := Decision{State: TodayBeforeDraw}
	if drawTime-tod > advisoryThreshold {
		decision.Advisory = fmt.Sprintf(
			"A edição se refere a %s de %s, que só ocorrerá às %s. Seu relatório está sendo gerado, aguarde.",
			code, drawDate.Format("02/01/06"), formatDrawTime(drawTime),
		)
	}
	return decision
}

// PrecedenceCheck rejects a today/future request whose draw is scheduled
// later than the earliest draw still pending today, so a request cannot race
// ahead of an imminent edition. Past dates are always allowed.
func (g *Gate) PrecedenceCheck(code string, drawDate time.Time) error {
	now := g.clock.Now()
	if dateOf(drawDate).Before(dateOf(now)) {
		return nil
	}

	nextCode, nextTime, pending := g.schedule.NextDrawAfter(timeOfDay(now))
	if !pending {
		return nil
	}

	requested, ok := g.schedule.DrawTime(code)
	if !ok {
		return nil
	}

	if requested > nextTime {
		g.log.Info("request skips next due edition",
			zap.String("code", code),
			zap.String("next_code", nextCode),
		)
		when := "hoje"
		if dateOf(drawDate).After(dateOf(now)) {
			when = drawDate.Format("02/01/06")
		}
		return fmt.Errorf("%w: a edição se refere a %s de %s, ainda não há relatório disponível; informe uma edição válida",
			ErrScheduleViolation, code, when)
	}
	return nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

func formatDrawTime(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
