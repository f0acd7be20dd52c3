// Package companyranking provides a tool answering questions about top
// Peruvian company rankings. The data set is simulated and intended for
// demonstrations.
package companyranking

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sweetpotato0/convoroute/pkg/logging"
)

// Name is the registry name of the tool
const Name = "company_ranking"

// Description summarizes what the tool answers
const Description = "Provides information about top company rankings by investment, revenue, market value or number of employees"

type company struct {
	Rank   int
	Name   string
	Metric string
	Sector string
}

type rankingKind string

const (
	kindInvestment  rankingKind = "investment"
	kindRevenue     rankingKind = "revenue"
	kindMarketValue rankingKind = "market value"
	kindEmployees   rankingKind = "employees"
)

var metricLabels = map[rankingKind]string{
	kindInvestment:  "Estimated investment",
	kindRevenue:     "Annual revenue",
	kindMarketValue: "Market value",
	kindEmployees:   "Number of employees",
}

// Simulated rankings of Peruvian companies, five entries per category.
var rankings = map[rankingKind][]company{
	kindInvestment: {
		{1, "Grupo Romero", "USD 1,250 million", "Diversified"},
		{2, "Grupo Breca", "USD 980 million", "Mining/Banking"},
		{3, "Grupo Intercorp", "USD 830 million", "Retail/Banking"},
		{4, "Southern Peru Copper", "USD 750 million", "Mining"},
		{5, "Alicorp", "USD 620 million", "Consumer goods"},
	},
	kindRevenue: {
		{1, "Petroperu", "USD 4,800 million", "Energy"},
		{2, "Southern Peru Copper", "USD 3,900 million", "Mining"},
		{3, "Grupo Romero", "USD 3,200 million", "Diversified"},
		{4, "Grupo Intercorp", "USD 2,950 million", "Retail/Banking"},
		{5, "Glencore Peru", "USD 2,700 million", "Mining"},
	},
	kindMarketValue: {
		{1, "Credicorp", "USD 12,500 million", "Banking"},
		{2, "Southern Peru Copper", "USD 9,800 million", "Mining"},
		{3, "Grupo Intercorp", "USD 5,200 million", "Retail/Banking"},
		{4, "Buenaventura", "USD 2,800 million", "Mining"},
		{5, "InRetail", "USD 2,300 million", "Retail"},
	},
	kindEmployees: {
		{1, "Grupo Intercorp", "90,000+", "Retail/Banking"},
		{2, "Grupo Romero", "75,000+", "Diversified"},
		{3, "Grupo Breca", "45,000+", "Diversified"},
		{4, "Grupo Gloria", "35,000+", "Food"},
		{5, "Grupo AJE", "20,000+", "Beverages"},
	},
}

var (
	investmentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`invest`),
		regexp.MustCompile(`(ranking|classification|top|best).*?invest`),
		regexp.MustCompile(`compan.*?invest`),
		regexp.MustCompile(`invest.*?compan`),
	}
	employeesPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(employee|workers|workforce|staff|headcount|personnel)`),
		regexp.MustCompile(`(ranking|classification|top|best).*?(employee|staff|workers)`),
		regexp.MustCompile(`compan.*?(employee|staff|workers)`),
	}
	revenuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(revenue|income|sales|earnings|profit|turnover)`),
		regexp.MustCompile(`(ranking|classification|top|best).*?(revenue|income|sales|earnings)`),
		regexp.MustCompile(`compan.*?(revenue|income|sales|earnings)`),
	}
	marketValuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(market value|market-value|market cap|capitalization|valuation|stock|shares)`),
		regexp.MustCompile(`(ranking|classification|top|best).*?(value|market|capitalization)`),
		regexp.MustCompile(`compan.*?(value|market|capitalization)`),
	}
)

// kindOrder is the fixed display and matching order for the categories.
var kindOrder = []rankingKind{kindInvestment, kindRevenue, kindMarketValue, kindEmployees}

// relatedWords maps each ranking kind to words that suggest it when the
// query names a category we do not track directly.
var relatedWords = map[rankingKind][]string{
	kindInvestment:  {"investment", "invest", "investors", "capital"},
	kindRevenue:     {"revenue", "sales", "income", "earnings", "profit"},
	kindMarketValue: {"value", "capitalization", "stock", "shares", "market"},
	kindEmployees:   {"employees", "workers", "staff", "headcount", "payroll"},
}

// Tool answers company ranking queries from the simulated data set
type Tool struct {
	logger *slog.Logger
}

// New creates the company ranking tool
func New() *Tool {
	return &Tool{logger: logging.WithComponent("tool.company_ranking")}
}

// Name returns the tool name
func (t *Tool) Name() string { return Name }

// Description returns the tool description
func (t *Tool) Description() string { return Description }

// Run answers a ranking query. It never returns an error: unrecognized
// queries get the general ranking overview instead.
func (t *Tool) Run(ctx context.Context, query string) (string, error) {
	t.logger.Info("ranking query received", "query", query)
	text := strings.ToLower(query)

	if kinds := matchedKinds(text); len(kinds) > 1 {
		t.logger.Info("multiple rankings requested", "count", len(kinds))
		return t.multipleRankings(kinds), nil
	}

	switch {
	case matchesAny(text, investmentPatterns):
		return formatRanking(kindInvestment), nil
	case matchesAny(text, employeesPatterns):
		return formatRanking(kindEmployees), nil
	case matchesAny(text, revenuePatterns):
		return formatRanking(kindRevenue), nil
	case matchesAny(text, marketValuePatterns):
		return formatRanking(kindMarketValue), nil
	}

	if kind := extractKind(text); kind != "" {
		if _, ok := rankings[kind]; ok {
			return formatRanking(kind), nil
		}
	}

	if similar := similarKinds(text); len(similar) > 0 && similar[0] != "" {
		return formatRanking(similar[0]), nil
	}

	return generalInfo(), nil
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// matchedKinds returns every ranking category the text asks about, in the
// fixed display order.
func matchedKinds(text string) []rankingKind {
	var kinds []rankingKind
	if matchesAny(text, investmentPatterns) {
		kinds = append(kinds, kindInvestment)
	}
	if matchesAny(text, revenuePatterns) {
		kinds = append(kinds, kindRevenue)
	}
	if matchesAny(text, marketValuePatterns) {
		kinds = append(kinds, kindMarketValue)
	}
	if matchesAny(text, employeesPatterns) {
		kinds = append(kinds, kindEmployees)
	}
	return kinds
}

func (t *Tool) multipleRankings(kinds []rankingKind) string {
	var sb strings.Builder
	sb.WriteString("Here is the information for the rankings you asked about:\n\n")
	for i, kind := range kinds {
		fmt.Fprintf(&sb, "--- RANKING BY %s ---\n", strings.ToUpper(string(kind)))
		sb.WriteString(formatRanking(kind))
		if i < len(kinds)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// extractKind looks for a direct category mention in the text
func extractKind(text string) rankingKind {
	for kind := range rankings {
		if strings.Contains(text, string(kind)) {
			return kind
		}
	}
	return ""
}

// similarKinds maps loosely related words to known ranking categories,
// in the fixed category order.
func similarKinds(text string) []rankingKind {
	var kinds []rankingKind
	for _, kind := range kindOrder {
		for _, word := range relatedWords[kind] {
			if strings.Contains(text, word) {
				kinds = append(kinds, kind)
				break
			}
		}
	}
	return kinds
}

func generalInfo() string {
	return "I can offer information about the following Peruvian company rankings:\n\n" +
		"1. Ranking by investment: the companies investing the most in Peru\n" +
		"2. Ranking by revenue: the companies with the highest annual revenue\n" +
		"3. Ranking by market value: the companies with the largest market capitalization\n" +
		"4. Ranking by employees: the companies employing the most people\n\n" +
		"Which one would you like to know more about?"
}

func formatRanking(kind rankingKind) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TOP 5 PERUVIAN COMPANIES BY %s:\n\n", strings.ToUpper(string(kind)))

	label := metricLabels[kind]
	for _, c := range rankings[kind] {
		fmt.Fprintf(&sb, "%d. %s\n", c.Rank, c.Name)
		fmt.Fprintf(&sb, "   %s: %s\n", label, c.Metric)
		fmt.Fprintf(&sb, "   Sector: %s\n\n", c.Sector)
	}

	sb.WriteString("Note: simulated data for demonstration purposes. Real figures may differ.")
	return sb.String()
}
