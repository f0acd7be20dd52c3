package intent

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/sweetpotato0/convoroute/pkg/logging"
)

// structuralPatterns catch conjunctions of requests: "I want to know X and
// also Y", "tell me about X, Y", "send me data on X and Y", or an explicit
// count word. Matched against the lower-cased message.
var structuralPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:want|need|would like) to (?:know|see|learn)(?: about)? .+ and (?:also )?.+`),
	regexp.MustCompile(`(?:i am|i'm) interested in .+(?:,| and ).+`),
	regexp.MustCompile(`(?:give|send|show|tell) me (?:information|data|details) (?:on|about|for) .+ and .+`),
	regexp.MustCompile(`tell me about .+, ?.+`),
	regexp.MustCompile(`\b(?:both|several|multiple)\b`),
}

// categoryTriggers maps each category to its trigger terms, with synonym
// expansion. Presence is a substring test over the lower-cased message.
var categoryTriggers = map[Category][]string{
	CategoryInvestment: {
		"investment", "investing", "invest", "investors",
	},
	CategoryRevenue: {
		"revenue", "income", "sales", "earnings", "profit", "turnover",
	},
	CategoryMarketValue: {
		"market value", "market-value", "market cap", "capitalization",
		"capital", "stock", "shares", "valuation",
	},
	CategoryEmployees: {
		"employee", "workers", "workforce", "staff", "headcount", "personnel",
	},
	CategoryHolidays: {
		"holiday", "holidays", "long weekend",
	},
	CategoryDate: {
		"date", "what day", "today",
	},
	CategoryTime: {
		"what time", "time is it", "current time", "the time", "o'clock",
	},
}

// canonicalQueries holds the tool-ready rewritten query per category.
var canonicalQueries = map[Category]string{
	CategoryInvestment:  "give me the company ranking by investment",
	CategoryRevenue:     "give me the company ranking by revenue",
	CategoryMarketValue: "give me the company ranking by market value",
	CategoryEmployees:   "give me the company ranking by employee count",
	CategoryHolidays:    "what holidays are coming up",
	CategoryDate:        "what is today's date",
	CategoryTime:        "what time is it now",
}

// extractionOrder governs the order extracted SubRequests appear in, and
// therefore the order sections appear in the synthesized reply: ranking
// categories first, then temporal categories.
var extractionOrder = []Category{
	CategoryInvestment,
	CategoryRevenue,
	CategoryMarketValue,
	CategoryEmployees,
	CategoryHolidays,
	CategoryDate,
	CategoryTime,
}

// rankingEvidence lists the four ranking domains counted as lexical
// multi-request evidence when no structural pattern matches.
var rankingEvidence = []Category{
	CategoryInvestment,
	CategoryRevenue,
	CategoryMarketValue,
	CategoryEmployees,
}

// Decomposer splits one utterance into independent sub-requests. It is a
// pure function over static tables; the zero value is not usable, construct
// with NewDecomposer.
type Decomposer struct {
	logger *slog.Logger
}

// NewDecomposer creates a decomposer
func NewDecomposer() *Decomposer {
	return &Decomposer{logger: logging.WithComponent("decomposer")}
}

// Decompose returns the ordered sub-requests extracted from text, or an
// empty list when the message reads as a single request. A message that
// triggers the multi-request evidence but yields no extractable category
// also returns the empty list: the caller then takes the single-request
// path. Duplicate categories are not filtered.
func (d *Decomposer) Decompose(text string) []SubRequest {
	lower := strings.ToLower(text)

	if !d.multiIntentEvidence(lower) {
		return nil
	}

	var subs []SubRequest
	for _, cat := range extractionOrder {
		if containsAny(lower, categoryTriggers[cat]) {
			subs = append(subs, SubRequest{Category: cat, Query: canonicalQueries[cat]})
		}
	}

	if len(subs) > 0 {
		d.logger.Info("multi-intent message detected", "sub_requests", len(subs))
	}
	return subs
}

// CanonicalQuery returns the tool-ready query for a category, or the empty
// string for unknown categories.
func CanonicalQuery(cat Category) string {
	return canonicalQueries[cat]
}

func (d *Decomposer) multiIntentEvidence(lower string) bool {
	for _, pattern := range structuralPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}

	// No structural match: more than one ranking domain present is itself
	// evidence of a multi-request.
	mentions := 0
	for _, cat := range rankingEvidence {
		if containsAny(lower, categoryTriggers[cat]) {
			mentions++
		}
	}
	return mentions > 1
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
