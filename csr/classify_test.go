package csr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/greenflow/impact-engine/csr"
)

// =============================================================================
// KEYWORD CLASSIFIER TESTS
// =============================================================================

func TestKeywordClassifier_RulePriority(t *testing.T) {
	// GIVEN: Descriptions matching the keyword rules
	// WHEN: Classifying
	// THEN: First matching rule wins, in rule order

	cases := []struct {
		description string
		want        csr.SDGCode
	}{
		{"Planted trees in the park", csr.SDG15},
		{"Volunteered at the community forest", csr.SDG15},
		{"Beach cleanup with the marine institute", csr.SDG14},
		{"Clean water access project", csr.SDG14},
		{"Tutoring kids after school", csr.SDG4},
		{"Education outreach weekend", csr.SDG4},
		{"Shift at the charity kitchen", csr.SDG2},
		{"Food bank sorting", csr.SDG2},
		{"Donation drive for winter clothes", csr.SDG1},
		{"Fighting urban poverty", csr.SDG1},
		{"Volunteering at the hospital ward", csr.SDG3},
		{"Mental health awareness walk", csr.SDG3},
		{"Helped at the annual gala", csr.SDGOther},
		{"", csr.SDGOther},
	}

	c := csr.KeywordClassifier{}
	for _, tc := range cases {
		got, err := c.ClassifySDG(context.Background(), tc.description)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.description, err)
		}
		if got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.description, tc.want, got)
		}
	}
}

func TestKeywordClassifier_EarlierRuleShadowsLater(t *testing.T) {
	// GIVEN: A description matching multiple rules
	// WHEN: Classifying
	// THEN: The rule listed first wins

	c := csr.KeywordClassifier{}

	// "tree" (SDG 15) comes before "water" (SDG 14)
	got, _ := c.ClassifySDG(context.Background(), "Watering trees by the river")
	if got != csr.SDG15 {
		t.Errorf("expected sdg15 to win, got %s", got)
	}

	// "school" (SDG 4) comes before "food" (SDG 2)
	got, _ = c.ClassifySDG(context.Background(), "School food program")
	if got != csr.SDG4 {
		t.Errorf("expected sdg4 to win, got %s", got)
	}
}

func TestKeywordClassifier_CaseInsensitive(t *testing.T) {
	c := csr.KeywordClassifier{}
	got, _ := c.ClassifySDG(context.Background(), "BEACH CLEANUP")
	if got != csr.SDG14 {
		t.Errorf("expected sdg14, got %s", got)
	}
}

// =============================================================================
// RESILIENT CLASSIFIER TESTS
// =============================================================================

func TestResilientClassifier_UsesPrimary(t *testing.T) {
	// GIVEN: A healthy primary classifier
	// WHEN: Classifying
	// THEN: The primary's answer is returned as-is

	primary := csr.ClassifierFunc(func(context.Context, string) (csr.SDGCode, error) {
		return csr.SDG7, nil
	})
	c := csr.NewResilientClassifier(primary, nil)

	got, err := c.ClassifySDG(context.Background(), "solar panel install day")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != csr.SDG7 {
		t.Errorf("expected sdg7 from primary, got %s", got)
	}
}

func TestResilientClassifier_FallsBackOnError(t *testing.T) {
	// GIVEN: A primary that fails
	// WHEN: Classifying a description the keyword rules recognize
	// THEN: The fallback result is returned with no error

	primary := csr.ClassifierFunc(func(context.Context, string) (csr.SDGCode, error) {
		return "", errors.New("service unavailable")
	})
	c := csr.NewResilientClassifier(primary, nil)

	got, err := c.ClassifySDG(context.Background(), "tree planting weekend")
	if err != nil {
		t.Fatalf("resilient classifier must not return errors, got %v", err)
	}
	if got != csr.SDG15 {
		t.Errorf("expected keyword fallback sdg15, got %s", got)
	}
}

func TestResilientClassifier_FallsBackOnInvalidCode(t *testing.T) {
	// GIVEN: A primary returning a code outside the taxonomy
	// WHEN: Classifying
	// THEN: Falls back to keywords

	primary := csr.ClassifierFunc(func(context.Context, string) (csr.SDGCode, error) {
		return "sdg42", nil
	})
	c := csr.NewResilientClassifier(primary, nil)

	got, err := c.ClassifySDG(context.Background(), "beach cleanup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != csr.SDG14 {
		t.Errorf("expected sdg14 fallback, got %s", got)
	}
}

func TestResilientClassifier_NilPrimary(t *testing.T) {
	c := csr.NewResilientClassifier(nil, nil)

	got, err := c.ClassifySDG(context.Background(), "hospital volunteering")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != csr.SDG3 {
		t.Errorf("expected sdg3, got %s", got)
	}
}

// =============================================================================
// CODE SCANNING TESTS
// =============================================================================

func TestScanForSDGCode(t *testing.T) {
	// GIVEN: Free text containing an SDG code
	// WHEN: Scanning
	// THEN: The code is extracted; two-digit codes are not shadowed by
	//       their one-digit prefixes

	if got, ok := csr.ScanForSDGCode(`{"result": "sdg14 - life below water"}`); !ok || got != csr.SDG14 {
		t.Errorf("expected sdg14, got %s (found=%v)", got, ok)
	}
	if got, ok := csr.ScanForSDGCode("classified as sdg3"); !ok || got != csr.SDG3 {
		t.Errorf("expected sdg3, got %s (found=%v)", got, ok)
	}
	if _, ok := csr.ScanForSDGCode("no code here"); ok {
		t.Error("expected no match")
	}
}
