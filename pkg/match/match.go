// Package match scores business names against company-registry candidates.
//
// The threshold and bonus schedule are product policy: they are what makes
// matching reproducible across runs, so they must not be retuned casually.
package match

import (
	"strings"

	"github.com/tmarsden/tradescout-backend/pkg/util"
)

const (
	// MinScore is the adjusted score a candidate must exceed to be accepted.
	MinScore = 0.40

	exactPostcodeBonus   = 0.30
	outwardPostcodeBonus = 0.10
	activeStatusBonus    = 0.05

	// tokens this short ("j", "co") carry no signal
	minTokenLength = 3
)

// legal-entity suffixes stripped before comparison
var legalSuffixes = map[string]struct{}{
	"limited":      {},
	"ltd":          {},
	"plc":          {},
	"llp":          {},
	"lp":           {},
	"llc":          {},
	"inc":          {},
	"incorporated": {},
	"company":      {},
	"co":           {},
}

// Candidate is a registry search result considered for matching.
type Candidate struct {
	CompanyNumber string
	CompanyName   string
	CompanyStatus string
	Postcode      string
}

// Score computes token-set Jaccard similarity between two business names in
// [0, 1]. Names are lower-cased, stripped of punctuation and legal-entity
// suffixes, and only tokens longer than 2 characters participate.
func Score(queryName, candidateName string) float64 {
	a := tokenize(queryName)
	b := tokenize(candidateName)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// BestMatch selects the highest-scoring candidate for the query name, or nil
// when no candidate clears MinScore. Bonuses: +0.30 exact postcode match,
// +0.10 outward-code match, +0.05 active company status. Ties keep the
// first-seen candidate.
func BestMatch(queryName, queryPostcode string, candidates []Candidate) *Candidate {
	var best *Candidate
	bestScore := 0.0

	queryNorm := util.NormalizePostcode(queryPostcode)
	queryOutward := util.OutwardCode(queryPostcode)

	for i := range candidates {
		c := &candidates[i]
		score := Score(queryName, c.CompanyName)

		if queryNorm != "" && c.Postcode != "" {
			candNorm := util.NormalizePostcode(c.Postcode)
			if candNorm == queryNorm {
				score += exactPostcodeBonus
			} else if util.OutwardCode(c.Postcode) == queryOutward {
				score += outwardPostcodeBonus
			}
		}
		if strings.EqualFold(c.CompanyStatus, "active") {
			score += activeStatusBonus
		}

		// strict > keeps the first-seen candidate on ties
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	if bestScore <= MinScore {
		return nil
	}
	return best
}

// tokenize lower-cases the name, drops punctuation, legal suffixes and short
// tokens, and returns the remaining token set.
func tokenize(name string) map[string]struct{} {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	tokens := make(map[string]struct{})
	for _, token := range strings.Fields(b.String()) {
		if len(token) < minTokenLength {
			continue
		}
		if _, ok := legalSuffixes[token]; ok {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}
