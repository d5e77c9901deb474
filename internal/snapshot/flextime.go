package snapshot

import (
	"encoding/json"
	"time"
)

// naiveDateLayout is the date-only ISO-8601 layout a source system emits
// when it never carried time-of-day or a UTC offset for a field.
const naiveDateLayout = "2006-01-02"

// FlexTime wraps time.Time for the handful of raw snapshot fields (hire
// date, role-start date, grant date, last-accessed timestamp) whose
// source data is not guaranteed to be full offset-bearing RFC3339. Per
// §7's recovery rules, an unparseable or absent value degrades that
// field to the zero time rather than failing the whole snapshot load:
// the caller never hears about it except through unusually small
// tenure/temporal proximity contributions.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON tries RFC3339 first (the common case once a value has a
// real timestamp or offset), then falls back to a bare "YYYY-MM-DD"
// date. Anything else — empty string, null, garbage — decodes to the
// zero time; this method never returns an error, by design, so one bad
// date can't abort an otherwise-good snapshot.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Time = time.Time{}
		return nil
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		t.Time = parsed
		return nil
	}
	if parsed, err := time.Parse(naiveDateLayout, raw); err == nil {
		t.Time = parsed
		return nil
	}
	t.Time = time.Time{}
	return nil
}

// MarshalJSON emits RFC3339, or an empty string for the zero time.
func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
