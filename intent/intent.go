package intent

// Category identifies one canonical, independently routable request kind.
type Category string

const (
	CategoryInvestment   Category = "ranking-by-investment"
	CategoryRevenue      Category = "ranking-by-revenue"
	CategoryMarketValue  Category = "ranking-by-market-value"
	CategoryEmployees    Category = "ranking-by-employees"
	CategoryHolidays     Category = "holidays"
	CategoryDate         Category = "current-date"
	CategoryTime         Category = "current-time"
	CategoryUnclassified Category = "unclassified"
)

// IsRanking reports whether the category belongs to the company-ranking
// domain (as opposed to the temporal domain).
func (c Category) IsRanking() bool {
	switch c {
	case CategoryInvestment, CategoryRevenue, CategoryMarketValue, CategoryEmployees:
		return true
	}
	return false
}

// SubRequest is one extracted request: a category plus a tool-ready query
// derived from the category, not from the raw user text. SubRequests are
// ephemeral, produced and consumed within one processed turn.
type SubRequest struct {
	Category Category
	Query    string
}
