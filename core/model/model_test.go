package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestLevel_LenientDecode(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{`{"fillLevel": 42.5}`, 42.5},
		{`{"fillLevel": "73"}`, 73},
		{`{"fillLevel": " 12.5 "}`, 12.5},
		{`{"fillLevel": null}`, 0},
		{`{"fillLevel": "abc"}`, 0},
		{`{"fillLevel": true}`, 0},
		{`{"fillLevel": {"x": 1}}`, 0},
		{`{}`, 0},
	}
	for _, c := range cases {
		var u Unit
		if err := json.Unmarshal([]byte(c.raw), &u); err != nil {
			t.Fatalf("%s: decode error %v", c.raw, err)
		}
		if float64(u.FillLevel) != c.want {
			t.Errorf("%s: expected %v got %v", c.raw, c.want, u.FillLevel)
		}
	}
}

func TestLevel_Percent(t *testing.T) {
	if Level(150).Percent() != 100 {
		t.Fatalf("expected clamp to 100")
	}
	if Level(-5).Percent() != 0 {
		t.Fatalf("expected clamp to 0")
	}
	if Level(55).Percent() != 55 {
		t.Fatalf("expected passthrough")
	}
}

func TestCoordinates_Valid(t *testing.T) {
	if !NewCoordinates(-1.2921, 36.8219).Valid() {
		t.Fatalf("expected valid")
	}
	if (Coordinates{1}).Valid() || (Coordinates{1, 2, 3}).Valid() || Coordinates(nil).Valid() {
		t.Fatalf("expected wrong arity to be invalid")
	}
	if NewCoordinates(91, 0).Valid() || NewCoordinates(0, 181).Valid() {
		t.Fatalf("expected out of range to be invalid")
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2025-03-04T10:00:00Z", "2025-03-04T10:00:00.123+02:00", "2025-03-04T10:00:00", "2025-03-04"} {
		if _, err := ParseTime(s); err != nil {
			t.Errorf("%s: %v", s, err)
		}
	}
	_, err := ParseTime("yesterday")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput got %v", err)
	}
	got, _ := ParseTime("2025-03-04T10:00:00+02:00")
	if got.Hour() != 8 || got.Location() != time.UTC {
		t.Fatalf("expected UTC normalisation got %v", got)
	}
}

func TestTimeOrNow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	got, ok := TimeOrNow("garbage", now)
	if ok || !got.Equal(now) {
		t.Fatalf("expected fallback to now")
	}
	got, ok = TimeOrNow("2024-12-31", now)
	if !ok || got.Day() != 31 {
		t.Fatalf("expected parsed date got %v", got)
	}
}
