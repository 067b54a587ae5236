/*
classify.go - SDG classification of activity descriptions

PURPOSE:
  Maps a free-text activity description to a single SDG code. The real
  classification lives behind an external text-classification service
  (see the classify package); this file provides the interface, the
  deterministic keyword fallback, and the resilient wrapper that guarantees
  callers always get a valid code.

CONTRACT:
  Classification NEVER fails from the caller's point of view. The external
  call has a bounded timeout; any failure (timeout, bad credentials,
  malformed response) is logged and absorbed, and the keyword fallback
  answers instead. The derivation pipeline depends on this: an activity save
  must not error because a third-party API is down.

KEYWORD PRIORITY:
  Fallback matching is case-insensitive substring testing in fixed priority
  order. The order matters: "tree planting near the water" is sdg15, not
  sdg14, because forest keywords are checked first.

SEE ALSO:
  - classify/client.go: HTTP client for the external service
  - impact.go: Derivation pipeline consuming the classification
*/
package csr

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// CLASSIFIER INTERFACE
// =============================================================================

// Classifier maps a description to an SDG code. Implementations may fail;
// wrap them in a ResilientClassifier before handing them to the Deriver.
type Classifier interface {
	ClassifySDG(ctx context.Context, description string) (SDGCode, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, description string) (SDGCode, error)

func (f ClassifierFunc) ClassifySDG(ctx context.Context, description string) (SDGCode, error) {
	return f(ctx, description)
}

// =============================================================================
// KEYWORD FALLBACK - Deterministic, never fails
// =============================================================================

// keywordRule maps substrings to a code. Rules are evaluated in order;
// first match wins.
type keywordRule struct {
	keywords []string
	code     SDGCode
}

var keywordRules = []keywordRule{
	{[]string{"forest", "tree", "plant"}, SDG15},
	{[]string{"water", "beach", "marine"}, SDG14},
	{[]string{"education", "school", "tutor"}, SDG4},
	{[]string{"food", "hunger", "charity kitchen"}, SDG2},
	{[]string{"poverty", "donation"}, SDG1},
	{[]string{"health", "hospital"}, SDG3},
}

// KeywordClassifier is the deterministic local fallback. It never returns
// an error.
type KeywordClassifier struct{}

func (KeywordClassifier) ClassifySDG(_ context.Context, description string) (SDGCode, error) {
	desc := strings.ToLower(description)
	if desc == "" {
		return SDGOther, nil
	}
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(desc, kw) {
				return rule.code, nil
			}
		}
	}
	return SDGOther, nil
}

// =============================================================================
// RESILIENT CLASSIFIER - External call with local fallback
// =============================================================================

// ResilientClassifier tries the primary (external) classifier first and
// falls back to keyword matching on any failure or invalid result.
// ClassifySDG never returns a non-nil error.
type ResilientClassifier struct {
	Primary  Classifier
	Fallback Classifier
	Log      logrus.FieldLogger
}

// NewResilientClassifier wires a primary classifier with the keyword
// fallback. primary may be nil, in which case only the fallback runs.
func NewResilientClassifier(primary Classifier, log logrus.FieldLogger) *ResilientClassifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ResilientClassifier{
		Primary:  primary,
		Fallback: KeywordClassifier{},
		Log:      log,
	}
}

func (c *ResilientClassifier) ClassifySDG(ctx context.Context, description string) (SDGCode, error) {
	if description == "" {
		return SDGOther, nil
	}

	if c.Primary != nil {
		code, err := c.Primary.ClassifySDG(ctx, description)
		if err == nil && ValidSDGCode(code) {
			return code, nil
		}
		// Absorbed: diagnostics only, never surfaced to the caller.
		c.Log.WithError(err).WithField("result", string(code)).
			Warn("external SDG classification failed, using keyword fallback")
	}

	return c.Fallback.ClassifySDG(ctx, description)
}

var _ Classifier = (*ResilientClassifier)(nil)
var _ Classifier = KeywordClassifier{}

// =============================================================================
// RESPONSE SCANNING - Shared with the HTTP client
// =============================================================================

// ScanForSDGCode searches free text for any known SDG code substring.
// Longer codes are checked first so "sdg14" is not shadowed by "sdg1".
// Returns (SDGOther, false) when nothing matches.
func ScanForSDGCode(text string) (SDGCode, bool) {
	lower := strings.ToLower(text)
	// sdg10..sdg17 before sdg1..sdg9
	for i := len(sdgCanonical) - 1; i >= 0; i-- {
		code := sdgCanonical[i]
		if strings.Contains(lower, string(code)) {
			return code, true
		}
	}
	if strings.Contains(lower, string(SDGOther)) {
		return SDGOther, true
	}
	return SDGOther, false
}
