package datetimetool

import (
	"context"
	"strings"
	"testing"
	"time"
)

// newTestTool pins the clock to a fixed instant in Peru time.
func newTestTool(t *testing.T, instant time.Time) *Tool {
	t.Helper()
	tool := New()
	tool.now = func() time.Time { return instant }
	return tool
}

// midYear is June 15 at noon Peru time, between Saint Peter and Saint Paul
// (06-29) and Labor Day (05-01).
var midYear = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.FixedZone("-05", -5*60*60))

func TestRunCurrentDateTime(t *testing.T) {
	tool := newTestTool(t, midYear)

	output, err := tool.Run(context.Background(), "what is today's date?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(output, "Current date and time in Peru") {
		t.Errorf("Expected Peru date/time header, got:\n%s", output)
	}
	if !strings.Contains(output, "Monday, June 15, 2026") {
		t.Errorf("Expected the pinned date, got:\n%s", output)
	}
	if !strings.Contains(output, "America/Lima") {
		t.Error("Expected the home time zone in the output")
	}
}

func TestRunHolidays(t *testing.T) {
	tool := newTestTool(t, midYear)

	output, err := tool.Run(context.Background(), "what holidays are coming up?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(output, "PUBLIC HOLIDAYS IN PERU") {
		t.Errorf("Expected holidays header, got:\n%s", output)
	}
	// June 15 -> the next holiday is Saint Peter and Saint Paul on June 29.
	if !strings.Contains(output, "1. Saint Peter and Saint Paul - June 29 (in 14 days)") {
		t.Errorf("Expected the next holiday with its countdown, got:\n%s", output)
	}
	if !strings.Contains(output, "2. Independence Day") {
		t.Errorf("Expected Independence Day second, got:\n%s", output)
	}
	// Only the next five are listed.
	if strings.Contains(output, "6. ") {
		t.Error("Expected at most 5 upcoming holidays")
	}
}

func TestRunHolidayToday(t *testing.T) {
	independenceDay := time.Date(2026, time.July, 28, 9, 0, 0, 0, time.FixedZone("-05", -5*60*60))
	tool := newTestTool(t, independenceDay)

	output, err := tool.Run(context.Background(), "is today a holiday?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(output, "TODAY IS A HOLIDAY: Independence Day") {
		t.Errorf("Expected today's holiday callout, got:\n%s", output)
	}
}

func TestRunTimezoneForCity(t *testing.T) {
	tool := newTestTool(t, midYear)

	output, err := tool.Run(context.Background(), "what time is it in madrid?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(output, "Current date and time in Madrid") {
		t.Errorf("Expected Madrid header, got:\n%s", output)
	}
	if !strings.Contains(output, "Europe/Madrid") {
		t.Error("Expected the Madrid time zone name")
	}
	if !strings.Contains(output, "ahead of Peru") {
		t.Errorf("Expected Madrid to be ahead of Peru, got:\n%s", output)
	}
}

func TestRunTimezoneUnknownCity(t *testing.T) {
	tool := newTestTool(t, midYear)

	output, err := tool.Run(context.Background(), "what time is it in atlantis?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(output, "couldn't find time zone information") {
		t.Errorf("Expected unknown-city message, got:\n%s", output)
	}
}

func TestRunTimezoneWithoutCity(t *testing.T) {
	tool := newTestTool(t, midYear)

	output, err := tool.Run(context.Background(), "tell me about time zone differences")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(output, "CURRENT TIME IN DIFFERENT CITIES") {
		t.Errorf("Expected multi-city table, got:\n%s", output)
	}
	if !strings.Contains(output, "Lima:") || !strings.Contains(output, "Tokyo:") {
		t.Error("Expected Lima and Tokyo rows in the table")
	}
}

func TestTimezoneForCityPartialMatch(t *testing.T) {
	if zone := timezoneForCity("new york city"); zone != "America/New_York" {
		t.Errorf("Expected partial match for new york city, got %q", zone)
	}
	if zone := timezoneForCity("cusco"); zone != homeZone {
		t.Errorf("Expected Peru zone for cusco, got %q", zone)
	}
}

func TestToolMetadata(t *testing.T) {
	tool := New()
	if tool.Name() != Name {
		t.Errorf("Expected name %q, got %q", Name, tool.Name())
	}
	if tool.Description() == "" {
		t.Error("Expected a non-empty description")
	}
}
