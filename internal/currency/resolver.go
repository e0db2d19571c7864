package currency

import (
	"log/slog"
	"strings"
)

// Layer confidences and the disagreement threshold are heuristic constants,
// kept as variables so deployments can tune them without a rebuild of the
// resolver's layering logic.
var (
	MerchantConfidence    = 0.9
	LocationConfidence    = 0.7
	LocaleConfidence      = 0.3
	FallbackConfidence    = 0.1
	DisagreementThreshold = 0.8
)

// FallbackCode is returned when no other layer produces a match.
const FallbackCode = "USD"

// Confidence pairs a resolved currency code with a heuristic score in [0,1].
// It is never persisted; it only decides whether to trust a model-asserted
// currency or replace it.
type Confidence struct {
	Code  string
	Score float64
}

// Resolver guesses a currency code from receipt text using layered
// heuristics, each layer strictly higher priority than the next:
// merchant table, location markers, environment locale, fixed fallback.
type Resolver struct {
	localeCode string
}

// NewResolver creates a Resolver. localeCode is the currency implied by the
// host environment's locale; it participates only when it is in the
// supported-currency set and may be empty.
func NewResolver(localeCode string) *Resolver {
	return &Resolver{localeCode: strings.ToUpper(strings.TrimSpace(localeCode))}
}

// Resolve produces a currency code and confidence for the given free text
// (merchant name, description, and any extracted text concatenated).
// First match wins.
func (r *Resolver) Resolve(text string) Confidence {
	lower := strings.ToLower(text)

	for merchant, code := range merchantTable {
		if strings.Contains(lower, merchant) {
			return Confidence{Code: code, Score: MerchantConfidence}
		}
	}

	for _, marker := range locationMarkers {
		if marker.pattern.MatchString(text) {
			return Confidence{Code: marker.code, Score: LocationConfidence}
		}
	}

	if r.localeCode != "" && Supported(r.localeCode) {
		return Confidence{Code: r.localeCode, Score: LocaleConfidence}
	}

	return Confidence{Code: FallbackCode, Score: FallbackConfidence}
}

// Reconcile decides between a model-asserted currency code and the
// resolver's own guess. An unsupported asserted code is replaced outright by
// the resolver's top result. A supported asserted code is kept even when the
// resolver disagrees with high confidence; the disagreement is only logged,
// since the resolver is a safety net for invalid codes, not an override of
// plausible ones.
func (r *Resolver) Reconcile(asserted, text string) string {
	code := strings.ToUpper(strings.TrimSpace(asserted))

	if !Supported(code) {
		resolved := r.Resolve(text)
		slog.Info("replacing unsupported currency code",
			"asserted", asserted,
			"resolved", resolved.Code,
			"confidence", resolved.Score,
		)
		return resolved.Code
	}

	resolved := r.Resolve(text)
	if resolved.Code != code && resolved.Score > DisagreementThreshold {
		slog.Warn("currency resolver disagrees with model",
			"asserted", code,
			"resolved", resolved.Code,
			"confidence", resolved.Score,
		)
	}
	return code
}
