package snapshot

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFlexTime_ParsesRFC3339(t *testing.T) {
	var ft FlexTime
	if err := json.Unmarshal([]byte(`"2020-03-15T09:30:00Z"`), &ft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2020, 3, 15, 9, 30, 0, 0, time.UTC)
	if !ft.Time.Equal(want) {
		t.Errorf("expected %v, got %v", want, ft.Time)
	}
}

func TestFlexTime_ParsesNaiveDate(t *testing.T) {
	var ft FlexTime
	if err := json.Unmarshal([]byte(`"2020-03-15"`), &ft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)
	if !ft.Time.Equal(want) {
		t.Errorf("expected %v, got %v", want, ft.Time)
	}
}

func TestFlexTime_GarbageDegradesToZeroWithoutError(t *testing.T) {
	var ft FlexTime
	if err := json.Unmarshal([]byte(`"not-a-date"`), &ft); err != nil {
		t.Fatalf("expected no error for unparseable input, got %v", err)
	}
	if !ft.Time.IsZero() {
		t.Errorf("expected zero time, got %v", ft.Time)
	}
}

func TestFlexTime_EmptyStringDegradesToZero(t *testing.T) {
	var ft FlexTime
	if err := json.Unmarshal([]byte(`""`), &ft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ft.Time.IsZero() {
		t.Errorf("expected zero time, got %v", ft.Time)
	}
}

func TestFlexTime_OneBadFieldDoesNotAbortWholeStruct(t *testing.T) {
	type entity struct {
		Good FlexTime `json:"good"`
		Bad  FlexTime `json:"bad"`
	}
	var e entity
	raw := []byte(`{"good":"2021-06-01T00:00:00Z","bad":"garbage"}`)
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Good.IsZero() {
		t.Error("expected good field to parse successfully")
	}
	if !e.Bad.IsZero() {
		t.Error("expected bad field to degrade to zero time")
	}
}

func TestFlexTime_MarshalRoundTripsRFC3339(t *testing.T) {
	ft := FlexTime{Time: time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)}
	out, err := json.Marshal(ft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `"2021-06-01T12:00:00Z"` {
		t.Errorf("unexpected marshal output: %s", out)
	}
}

func TestFlexTime_MarshalZeroAsEmptyString(t *testing.T) {
	out, err := json.Marshal(FlexTime{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `""` {
		t.Errorf("expected empty string, got %s", out)
	}
}
