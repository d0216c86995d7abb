package moderation

import (
	"net/url"
	"strings"
)

var defaultBlockedTerms = []string{
	"nsfw",
	"nude",
	"porn",
	"gore",
	"kill yourself",
	"self-harm",
	"racial slur",
}

type RuleOptions struct {
	BlockedTerms     []string
	MaxContextLength int
}

// RuleClassifier - детерминированный классификатор без внешних вызовов
type RuleClassifier struct {
	terms     []string
	maxLength int
}

func NewRuleClassifier(opts RuleOptions) *RuleClassifier {
	terms := opts.BlockedTerms
	if len(terms) == 0 {
		terms = defaultBlockedTerms
	}
	normalized := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	maxLength := opts.MaxContextLength
	if maxLength <= 0 {
		maxLength = 5000
	}
	return &RuleClassifier{terms: normalized, maxLength: maxLength}
}

// Classify не может упасть
func (r *RuleClassifier) Classify(sub Submission) Decision {
	if d, ok := r.CheckStructure(sub); !ok {
		return d
	}

	texts := append([]string{sub.Context}, sub.Texts...)
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, term := range r.terms {
			if strings.Contains(lower, term) {
				return r.reject("content contains prohibited material")
			}
		}
	}

	return Decision{Approved: true, Confidence: 0.6, Source: SourceFallback}
}

// CheckStructure проверяет длину контекста и схемы URL медиа.
// Эти правила не зависят от классификатора и применяются всегда.
func (r *RuleClassifier) CheckStructure(sub Submission) (Decision, bool) {
	if len([]rune(sub.Context)) > r.maxLength {
		return r.reject("context is too long"), false
	}

	for _, ref := range sub.MediaRefs {
		if ref == "" {
			continue
		}
		u, err := url.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return r.reject("unsupported media reference"), false
		}
	}
	return Decision{}, true
}

func (r *RuleClassifier) reject(reason string) Decision {
	return Decision{Approved: false, Reason: reason, Confidence: 0.8, Source: SourceFallback}
}
