package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// minEvery keeps "@every" schedules from spinning the runner.
const minEvery = time.Second

var standardCron = regexp.MustCompile(`^(((\d+,)+\d+|(\d+(\/|-)\d+)|\d+|\*) ?){5,7}$`)

// Schedule computes the next run after a given instant.
type Schedule struct {
	expr  string
	every time.Duration
	next  func(time.Time) time.Time
}

// String returns the expression the schedule was parsed from.
func (s Schedule) String() string { return s.expr }

// Next returns the first run strictly after t.
func (s Schedule) Next(t time.Time) time.Time {
	if s.every > 0 {
		return t.Add(s.every)
	}
	return s.next(t)
}

// ParseSchedule accepts "@every <duration>" (with a "d" day suffix allowed)
// and the named expressions @hourly, @daily, @weekly, @monthly and @yearly.
func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	s := Schedule{expr: expr}
	switch expr {
	case "@yearly", "@annually":
		s.next = nextYear
	case "@monthly":
		s.next = nextMonth
	case "@weekly":
		s.next = nextWeek
	case "@daily", "@midnight":
		s.next = nextDay
	case "@hourly":
		s.next = nextHour
	default:
		if rest, ok := strings.CutPrefix(expr, "@every "); ok {
			d, err := parseEvery(strings.TrimSpace(rest))
			if err != nil {
				return Schedule{}, err
			}
			s.every = d
			return s, nil
		}
		if standardCron.MatchString(expr) {
			return Schedule{}, fmt.Errorf("standard cron expressions are not supported, use @every or a named schedule: %q", expr)
		}
		return Schedule{}, fmt.Errorf("invalid schedule %q", expr)
	}
	return s, nil
}

// ParseCronExpression returns the next run of expr after baseTime.
func ParseCronExpression(expr string, baseTime time.Time) (time.Time, error) {
	s, err := ParseSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(baseTime), nil
}

// ValidateCronExpression validates a schedule expression
func ValidateCronExpression(expr string) error {
	_, err := ParseSchedule(expr)
	return err
}

// parseEvery parses "90s", "10m", "1h" or "7d".
func parseEvery(duration string) (time.Duration, error) {
	var d time.Duration
	if days, ok := strings.CutSuffix(duration, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", duration)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		var err error
		if d, err = time.ParseDuration(duration); err != nil {
			return 0, fmt.Errorf("invalid duration: %s", duration)
		}
	}
	if d < minEvery {
		return 0, fmt.Errorf("interval %s is below the %s minimum", duration, minEvery)
	}
	return d, nil
}

func nextYear(t time.Time) time.Time {
	return time.Date(t.Year()+1, 1, 1, 0, 0, 0, 0, t.Location())
}

func nextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
}

// nextWeek is the next Sunday at midnight.
func nextWeek(t time.Time) time.Time {
	days := (7 - int(t.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day()+days, 0, 0, 0, 0, t.Location())
}

func nextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

func nextHour(t time.Time) time.Time {
	return t.Add(time.Hour).Truncate(time.Hour)
}
