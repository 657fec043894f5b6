package polymarket

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// mapContract converts a samplingMarket DTO into a domain.Contract for the
// given series. Returns false when the market lacks the fields the pipeline
// needs (slug, expiry, or a YES/NO token pair).
func mapContract(series domain.Series, r samplingMarket) (domain.Contract, bool) {
	if r.MarketSlug == "" || r.ConditionID == "" {
		return domain.Contract{}, false
	}
	expiry, err := time.Parse(time.RFC3339, r.EndDateISO)
	if err != nil {
		return domain.Contract{}, false
	}

	yes, okYes := pickOutcome(r.Tokens, "yes")
	no, okNo := pickOutcome(r.Tokens, "no")
	if !okYes || !okNo {
		return domain.Contract{}, false
	}

	return domain.Contract{
		Series:      series,
		Slug:        r.MarketSlug,
		ConditionID: r.ConditionID,
		Question:    r.Question,
		Strike:      ParseStrike(r.Question),
		Expiry:      expiry.UTC(),
		YesTokenID:  yes.TokenID,
		NoTokenID:   no.TokenID,
		YesPrice:    yes.Price,
	}, true
}

func pickOutcome(tokens []clobToken, name string) (clobToken, bool) {
	for _, t := range tokens {
		if strings.EqualFold(strings.TrimSpace(t.Outcome), name) && t.TokenID != "" {
			return t, true
		}
	}
	return clobToken{}, false
}

// strikeRe matches "above $66,900", "above 67000.5", "hit $70k" and the
// k/m/b suffixed forms used by the BTC series questions.
var strikeRe = []*regexp.Regexp{
	regexp.MustCompile(`(?i)above\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?[kKmMbB]?)`),
	regexp.MustCompile(`(?i)hit\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?[kKmMbB]?)`),
}

// ParseStrike extracts the strike price from a market question. Returns 0
// when no strike is present — callers treat that as incomplete metadata.
func ParseStrike(question string) float64 {
	for _, re := range strikeRe {
		m := re.FindStringSubmatch(question)
		if m == nil {
			continue
		}

		num := strings.ReplaceAll(strings.ToLower(m[1]), ",", "")
		mult := 1.0
		switch {
		case strings.HasSuffix(num, "k"):
			mult, num = 1e3, strings.TrimSuffix(num, "k")
		case strings.HasSuffix(num, "m"):
			mult, num = 1e6, strings.TrimSuffix(num, "m")
		case strings.HasSuffix(num, "b"):
			mult, num = 1e9, strings.TrimSuffix(num, "b")
		}

		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			continue
		}
		return v * mult
	}
	return 0
}

// FamilyPrefix derives the slug family from a seed slug: the rolling series
// appends a window timestamp as the last dash-separated segment.
func FamilyPrefix(seedSlug string) string {
	if i := strings.LastIndex(seedSlug, "-"); i > 0 {
		return seedSlug[:i]
	}
	return seedSlug
}
