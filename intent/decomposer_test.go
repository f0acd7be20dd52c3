package intent

import "testing"

func TestDecomposeMultiRequest(t *testing.T) {
	d := NewDecomposer()

	subs := d.Decompose("I want to know about investment and also about holidays")
	if len(subs) != 2 {
		t.Fatalf("Expected 2 sub-requests, got %d", len(subs))
	}
	if subs[0].Category != CategoryInvestment {
		t.Errorf("Expected first category %s, got %s", CategoryInvestment, subs[0].Category)
	}
	if subs[1].Category != CategoryHolidays {
		t.Errorf("Expected second category %s, got %s", CategoryHolidays, subs[1].Category)
	}
}

func TestDecomposeSingleRequest(t *testing.T) {
	d := NewDecomposer()

	tests := []struct {
		name string
		text string
	}{
		{"ranking query", "ranking by market value"},
		{"greeting", "hello there"},
		{"holiday query", "what holidays are coming up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if subs := d.Decompose(tt.text); len(subs) != 0 {
				t.Errorf("Expected no sub-requests for %q, got %d", tt.text, len(subs))
			}
		})
	}
}

func TestDecomposeRankingPairWithoutStructuralPattern(t *testing.T) {
	d := NewDecomposer()

	// Two ranking domains in one message count as multi-request evidence
	// even without a conjunction pattern.
	subs := d.Decompose("compare revenue against employee headcount")
	if len(subs) != 2 {
		t.Fatalf("Expected 2 sub-requests, got %d", len(subs))
	}
	if subs[0].Category != CategoryRevenue || subs[1].Category != CategoryEmployees {
		t.Errorf("Unexpected categories: %s, %s", subs[0].Category, subs[1].Category)
	}
}

func TestDecomposeOrderIsFixed(t *testing.T) {
	d := NewDecomposer()

	// Categories come out in extraction order regardless of mention order.
	subs := d.Decompose("I want to know about holidays and also about investment")
	if len(subs) != 2 {
		t.Fatalf("Expected 2 sub-requests, got %d", len(subs))
	}
	if subs[0].Category != CategoryInvestment {
		t.Errorf("Expected investment first, got %s", subs[0].Category)
	}
}

func TestDecomposeEvidenceWithoutCategories(t *testing.T) {
	d := NewDecomposer()

	// Structural evidence but nothing extractable yields the empty list.
	if subs := d.Decompose("I have several questions for you"); len(subs) != 0 {
		t.Errorf("Expected no sub-requests, got %d", len(subs))
	}
}

func TestCanonicalQueries(t *testing.T) {
	for _, cat := range extractionOrder {
		if CanonicalQuery(cat) == "" {
			t.Errorf("Category %s has no canonical query", cat)
		}
	}
	if CanonicalQuery(CategoryUnclassified) != "" {
		t.Error("Expected empty canonical query for unclassified")
	}
}

func TestIsRanking(t *testing.T) {
	ranking := []Category{CategoryInvestment, CategoryRevenue, CategoryMarketValue, CategoryEmployees}
	for _, cat := range ranking {
		if !cat.IsRanking() {
			t.Errorf("Expected %s to be a ranking category", cat)
		}
	}
	for _, cat := range []Category{CategoryHolidays, CategoryDate, CategoryTime} {
		if cat.IsRanking() {
			t.Errorf("Expected %s not to be a ranking category", cat)
		}
	}
}
