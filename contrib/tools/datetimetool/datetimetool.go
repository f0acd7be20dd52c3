// Package datetimetool provides a tool answering questions about the
// current date and time in Peru, upcoming Peruvian holidays and the time
// in other cities.
package datetimetool

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sweetpotato0/convoroute/pkg/logging"
)

// Name is the registry name of the tool
const Name = "datetime"

// Description summarizes what the tool answers
const Description = "Provides accurate information about the current date and time, public holidays, and time zone conversions"

// homeZone is the reference time zone for all answers
const homeZone = "America/Lima"

// peruCities all share the Lima time zone
var peruCities = map[string]string{
	"lima":     homeZone,
	"arequipa": homeZone,
	"trujillo": homeZone,
	"chiclayo": homeZone,
	"iquitos":  homeZone,
	"cusco":    homeZone,
	"piura":    homeZone,
	"huancayo": homeZone,
	"tacna":    homeZone,
	"pucallpa": homeZone,
}

var internationalZones = map[string]string{
	"new york":       "America/New_York",
	"los angeles":    "America/Los_Angeles",
	"madrid":         "Europe/Madrid",
	"london":         "Europe/London",
	"paris":          "Europe/Paris",
	"berlin":         "Europe/Berlin",
	"tokyo":          "Asia/Tokyo",
	"sydney":         "Australia/Sydney",
	"beijing":        "Asia/Shanghai",
	"rio de janeiro": "America/Sao_Paulo",
}

// peruHolidays maps MM-DD to the holiday observed in Peru that day.
// Simplified fixed-date list for demonstration.
var peruHolidays = map[string]string{
	"01-01": "New Year's Day",
	"01-04": "National Integration Day",
	"04-06": "Maundy Thursday",
	"04-07": "Good Friday",
	"05-01": "Labor Day",
	"06-29": "Saint Peter and Saint Paul",
	"07-28": "Independence Day",
	"07-29": "Armed Forces Day",
	"08-30": "Santa Rosa de Lima",
	"10-08": "Battle of Angamos",
	"11-01": "All Saints' Day",
	"12-08": "Immaculate Conception",
	"12-25": "Christmas Day",
}

var holidayKeywords = []string{
	"holiday", "holidays", "long weekend", "public holiday", "festivity", "day off", "days off",
}

var timezoneKeywords = []string{
	"time zone", "timezone", "time in", "what time is it in", "time difference", "local time",
}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`time (?:in|at|of) ([a-z\s]+)`),
	regexp.MustCompile(`what time is it in ([a-z\s]+)`),
	regexp.MustCompile(`time zone (?:of|in|for) ([a-z\s]+)`),
	regexp.MustCompile(`current time (?:in|at) ([a-z\s]+)`),
}

// Tool answers date, time, holiday and time zone queries
type Tool struct {
	logger *slog.Logger
	now    func() time.Time // overridable in tests
}

// New creates the datetime tool
func New() *Tool {
	return &Tool{
		logger: logging.WithComponent("tool.datetime"),
		now:    time.Now,
	}
}

// Name returns the tool name
func (t *Tool) Name() string { return Name }

// Description returns the tool description
func (t *Tool) Description() string { return Description }

// Run answers a date/time query. Holiday questions get the upcoming
// holiday list, time-zone questions the time elsewhere, everything else
// the current date and time in Peru.
func (t *Tool) Run(ctx context.Context, query string) (string, error) {
	text := strings.ToLower(query)

	switch {
	case containsAny(text, holidayKeywords):
		return t.holidayInfo(), nil
	case containsAny(text, timezoneKeywords):
		return t.timezoneInfo(text), nil
	default:
		return t.currentDateTime(), nil
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (t *Tool) homeNow() time.Time {
	loc, err := time.LoadLocation(homeZone)
	if err != nil {
		// UTC-5 year round, Peru does not observe DST
		loc = time.FixedZone("-05", -5*60*60)
	}
	return t.now().In(loc)
}

func (t *Tool) currentDateTime() string {
	now := t.homeNow()

	dateStr := now.Format("Monday, January 2, 2006")
	timeStr := now.Format("15:04:05")

	holidayInfo := ""
	if holiday, ok := peruHolidays[now.Format("01-02")]; ok {
		holidayInfo = fmt.Sprintf("\nToday is %s.", holiday)
	}

	return fmt.Sprintf(`Current date and time in Peru:

Date: %s
Time: %s (UTC-5, Peru time)%s

Time zone: America/Lima (GMT-5)
`, dateStr, timeStr, holidayInfo)
}

type upcomingHoliday struct {
	name          string
	date          time.Time
	daysRemaining int
}

func (t *Tool) holidayInfo() string {
	now := t.homeNow()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var upcoming []upcomingHoliday
	for dateStr, name := range peruHolidays {
		var month, day int
		if _, err := fmt.Sscanf(dateStr, "%d-%d", &month, &day); err != nil {
			continue
		}
		date := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
		if !date.After(today) {
			continue
		}
		upcoming = append(upcoming, upcomingHoliday{
			name:          name,
			date:          date,
			daysRemaining: int(date.Sub(today).Hours() / 24),
		})
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].daysRemaining < upcoming[j].daysRemaining
	})

	var sb strings.Builder
	sb.WriteString("PUBLIC HOLIDAYS IN PERU\n\n")

	if holiday, ok := peruHolidays[now.Format("01-02")]; ok {
		fmt.Fprintf(&sb, "TODAY IS A HOLIDAY: %s\n\n", holiday)
	}

	sb.WriteString("Upcoming holidays:\n")
	for i, h := range upcoming {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "%d. %s - %s (in %d days)\n", i+1, h.name, h.date.Format("January 2"), h.daysRemaining)
	}

	sb.WriteString("\nNote: this list may not include regional holidays or one-off non-working days.")
	return sb.String()
}

func (t *Tool) timezoneInfo(text string) string {
	city := extractLocation(text)
	if city == "" {
		return t.multipleTimezones()
	}

	zone := timezoneForCity(city)
	if zone == "" {
		return fmt.Sprintf("I couldn't find time zone information for %q. I can answer for major cities in Peru and around the world.", city)
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		t.logger.Error("failed to load time zone", "city", city, "zone", zone, "error", err)
		return fmt.Sprintf("I couldn't get the current time for %s.", city)
	}

	now := t.now().In(loc)
	home := t.homeNow()

	diff := (now.Hour() - home.Hour() + 24) % 24
	var diffStr string
	switch {
	case diff == 0:
		diffStr = "same time as Peru"
	case diff <= 12:
		diffStr = fmt.Sprintf("%d hours ahead of Peru", diff)
	default:
		diffStr = fmt.Sprintf("%d hours behind Peru", 24-diff)
	}

	return fmt.Sprintf(`Current date and time in %s:

Date: %s
Time: %s (%s)

Time zone: %s
`, capitalizeWords(city), now.Format("Monday, January 2, 2006"), now.Format("15:04:05"), diffStr, zone)
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func extractLocation(text string) string {
	for _, p := range locationPatterns {
		if match := p.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}

func timezoneForCity(city string) string {
	city = strings.ToLower(city)

	if zone, ok := peruCities[city]; ok {
		return zone
	}
	if zone, ok := internationalZones[city]; ok {
		return zone
	}

	for known, zone := range peruCities {
		if strings.Contains(known, city) || strings.Contains(city, known) {
			return zone
		}
	}
	for known, zone := range internationalZones {
		if strings.Contains(known, city) || strings.Contains(city, known) {
			return zone
		}
	}
	return ""
}

func (t *Tool) multipleTimezones() string {
	selected := []struct {
		city string
		zone string
	}{
		{"Lima", homeZone},
		{"New York", "America/New_York"},
		{"London", "Europe/London"},
		{"Madrid", "Europe/Madrid"},
		{"Tokyo", "Asia/Tokyo"},
		{"Sydney", "Australia/Sydney"},
	}

	home := t.homeNow()

	var sb strings.Builder
	sb.WriteString("CURRENT TIME IN DIFFERENT CITIES\n\n")

	for _, s := range selected {
		loc, err := time.LoadLocation(s.zone)
		if err != nil {
			t.logger.Error("failed to load time zone", "city", s.city, "error", err)
			continue
		}
		now := t.now().In(loc)

		diff := (now.Hour() - home.Hour() + 24) % 24
		var diffStr string
		switch {
		case s.city == "Lima":
			diffStr = "(local time)"
		case diff == 0:
			diffStr = "(=h)"
		case diff <= 12:
			diffStr = fmt.Sprintf("(+%dh)", diff)
		default:
			diffStr = fmt.Sprintf("(-%dh)", 24-diff)
		}

		fmt.Fprintf(&sb, "%s: %s %s\n", s.city, now.Format("15:04"), diffStr)
	}

	sb.WriteString("\nAsk about a specific city for more detail.")
	return sb.String()
}
