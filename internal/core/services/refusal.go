package services

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// advisoryPhrases is the auditable table of advisory-intent phrases, matched
// on word boundaries against normalised text.
var advisoryPhrases = []string{
	// recommendations
	"should i",
	"should we",
	"should our",
	"what should i do",
	"what should we do",
	"what should our company do",
	"tell me what to do",
	"can you tell me what to do",
	"do you think i should",
	"do you think we should",
	"advise me",
	"can you advise",
	"provide advice",
	"what do you recommend",
	"recommend that i",
	"recommend that we",

	// judgement calls
	"is my token a security",
	"is my token considered a security",
	"is our token a security",
	"is this token a security",
	"should i register",
	"should we register",
	"should i comply",
	"should we comply",

	// evasion
	"bypass regulation",
	"can we bypass regulation",
	"how to bypass regulation",
	"avoid regulation",
	"get around regulation",
	"work around regulation",
	"how do we avoid compliance",
}

var (
	nonAlphanumeric  = regexp.MustCompile(`[^a-z0-9]+`)
	advisoryMatchers = compileAdvisoryMatchers(advisoryPhrases)
)

func compileAdvisoryMatchers(phrases []string) []*regexp.Regexp {
	matchers := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		matchers = append(matchers, regexp.MustCompile(`\b`+regexp.QuoteMeta(p)+`\b`))
	}
	return matchers
}

// normalizeQuestion lowercases text and collapses punctuation to single spaces.
func normalizeQuestion(text string) string {
	return strings.TrimSpace(nonAlphanumeric.ReplaceAllString(strings.ToLower(text), " "))
}

// ClassifyRequest labels a question advisory when it asks for a
// recommendation, a judgement call or help evading an obligation.
func ClassifyRequest(question string) domain.RequestClass {
	normalized := normalizeQuestion(question)
	for _, m := range advisoryMatchers {
		if m.MatchString(normalized) {
			return domain.ClassAdvisory
		}
	}
	return domain.ClassInformational
}
