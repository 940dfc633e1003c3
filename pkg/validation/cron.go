package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type cronBounds struct {
	name string
	min  int
	max  int
}

// Standard 5-field cron: minute hour day-of-month month day-of-week.
var cronFields = []cronBounds{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day of month", 1, 31},
	{"month", 1, 12},
	{"day of week", 0, 6},
}

// ValidateCronExpression validates a standard 5-field cron expression.
// Each field accepts "*", "*/n", single values, comma lists and ranges.
func ValidateCronExpression(expr string) error {
	fields := strings.Fields(strings.TrimSpace(expr))
	if len(fields) != 5 {
		return fmt.Errorf("cron expression must have exactly 5 fields, got %d", len(fields))
	}
	for i, field := range fields {
		if err := validateCronField(field, cronFields[i]); err != nil {
			return fmt.Errorf("invalid %s field %q: %w", cronFields[i].name, field, err)
		}
	}
	return nil
}

// CronMatches reports whether the expression fires at the given time,
// truncated to the minute. Invalid expressions never match.
func CronMatches(expr string, t time.Time) bool {
	if err := ValidateCronExpression(expr); err != nil {
		return false
	}
	fields := strings.Fields(strings.TrimSpace(expr))
	values := []int{
		t.Minute(),
		t.Hour(),
		t.Day(),
		int(t.Month()),
		int(t.Weekday()),
	}
	for i, field := range fields {
		if !cronFieldMatches(field, values[i]) {
			return false
		}
	}
	return true
}

// CronNext returns the first minute strictly after t at which the
// expression fires, scanning minute by minute up to one year out.
// Returns false for invalid expressions or when nothing fires within
// the horizon.
func CronNext(expr string, t time.Time) (time.Time, bool) {
	if err := ValidateCronExpression(expr); err != nil {
		return time.Time{}, false
	}
	next := t.Truncate(time.Minute).Add(time.Minute)
	horizon := next.AddDate(1, 0, 0)
	for ; next.Before(horizon); next = next.Add(time.Minute) {
		if CronMatches(expr, next) {
			return next, true
		}
	}
	return time.Time{}, false
}

func cronFieldMatches(field string, value int) bool {
	if field == "*" {
		return true
	}
	if step, ok := strings.CutPrefix(field, "*/"); ok {
		n, _ := strconv.Atoi(step)
		return n > 0 && value%n == 0
	}
	for _, part := range strings.Split(field, ",") {
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, _ := strconv.Atoi(lo)
			b, _ := strconv.Atoi(hi)
			if value >= a && value <= b {
				return true
			}
			continue
		}
		if n, err := strconv.Atoi(part); err == nil && n == value {
			return true
		}
	}
	return false
}

func validateCronField(field string, bounds cronBounds) error {
	if field == "*" {
		return nil
	}
	if step, ok := strings.CutPrefix(field, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil || n < 1 {
			return fmt.Errorf("step must be a positive integer")
		}
		if n > bounds.max {
			return fmt.Errorf("step %d exceeds maximum %d", n, bounds.max)
		}
		return nil
	}
	for _, part := range strings.Split(field, ",") {
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, errA := strconv.Atoi(lo)
			b, errB := strconv.Atoi(hi)
			if errA != nil || errB != nil {
				return fmt.Errorf("range bounds must be integers")
			}
			if a > b {
				return fmt.Errorf("range start %d after end %d", a, b)
			}
			if a < bounds.min || b > bounds.max {
				return fmt.Errorf("range %d-%d outside %d-%d", a, b, bounds.min, bounds.max)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("value must be an integer")
		}
		if n < bounds.min || n > bounds.max {
			return fmt.Errorf("value %d outside %d-%d", n, bounds.min, bounds.max)
		}
	}
	return nil
}
