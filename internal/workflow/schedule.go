package workflow

import (
	"time"

	"newsdesk/internal/apperr"
)

// editorialZone is the fixed local zone scheduled timestamps are stored in.
var editorialZone = loadEditorialZone()

func loadEditorialZone() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// Layouts carrying an explicit offset; parsed as-is then converted to the
// editorial zone.
var awareLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05Z07:00",
}

// Naive layouts; interpreted directly in the editorial zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseScheduledAt parses a scheduled_at value permissively. Timezone-aware
// input is converted to the editorial zone; naive input is assumed to
// already be in it.
func ParseScheduledAt(raw string) (time.Time, error) {
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(editorialZone), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, editorialZone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validationf("invalid date format for scheduled_at")
}

// ResolvePublishTime computes the effective publish time for a direct
// publish request: now when no schedule is given, otherwise the parsed
// schedule (which may be in the past).
func ResolvePublishTime(scheduledAt string) (time.Time, error) {
	if scheduledAt == "" {
		return time.Now().In(editorialZone), nil
	}
	return ParseScheduledAt(scheduledAt)
}
