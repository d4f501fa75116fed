package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestOrNow(t *testing.T) {
	at := time.Date(2024, 10, 10, 10, 10, 10, 0, time.FixedZone("X", 3600))
	if got := OrNow(&at); !got.Equal(at) || got.Location() != time.UTC {
		t.Fatalf("expected %v in UTC, got %v", at, got)
	}
	var zero time.Time
	if OrNow(&zero).IsZero() || OrNow(nil).IsZero() {
		t.Fatalf("expected current time")
	}
}

func TestSameDayAndHour(t *testing.T) {
	a := time.Date(2024, 10, 10, 23, 59, 0, 0, time.UTC)
	if !SameHour(a, a.Add(-30*time.Minute)) {
		t.Fatalf("expected same hour")
	}
	if SameHour(a, a.Add(2*time.Minute)) {
		t.Fatalf("expected different hour")
	}
	if SameDay(a, a.Add(2*time.Minute)) {
		t.Fatalf("expected different day")
	}
	if !SameDay(a, a.Add(-23*time.Hour)) {
		t.Fatalf("expected same day")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"RSI Oversold Scalp":      "rsi_oversold_scalp",
		"Bollinger Band Breakout": "bollinger_band_breakout",
		"  MACD / EMA -- 5m  ":    "macd_ema_5m",
		"!!!":                     "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
