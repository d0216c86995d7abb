// Package moderation решает, можно ли принять контент заявки.
// Основной классификатор - внешний (OpenAI), при любой его ошибке
// решение принимает детерминированный RuleClassifier.
package moderation

import (
	"context"
	"time"

	"verdict_backend/internal/logger"
	"verdict_backend/internal/metrics"
)

type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Submission - то, что проверяется перед созданием заявки
type Submission struct {
	Context   string
	Texts     []string // текст заявки, подписи вариантов
	MediaRefs []string // URL изображений
}

type Decision struct {
	Approved   bool
	Reason     string
	Confidence float64
	Source     Source
}

// Classifier - внешний классификатор, может вернуть ошибку
type Classifier interface {
	Classify(ctx context.Context, sub Submission) (Decision, error)
}

// Evaluator - то, от чего зависит сервис заявок
type Evaluator interface {
	Evaluate(ctx context.Context, sub Submission) Decision
}

type Gate struct {
	primary  Classifier
	fallback *RuleClassifier
	timeout  time.Duration
}

// NewGate: primary может быть nil, тогда всегда работает fallback
func NewGate(primary Classifier, fallback *RuleClassifier, timeout time.Duration) *Gate {
	if fallback == nil {
		fallback = NewRuleClassifier(RuleOptions{})
	}
	return &Gate{primary: primary, fallback: fallback, timeout: timeout}
}

// Evaluate никогда не возвращает ошибку: любой сбой основного
// классификатора (таймаут, транспорт, пустой ответ) уходит в правила.
func (g *Gate) Evaluate(ctx context.Context, sub Submission) Decision {
	if g.primary == nil {
		d := g.fallback.Classify(sub)
		g.record(d)
		return d
	}

	// Структурные правила одинаковы для обоих путей
	if d, ok := g.fallback.CheckStructure(sub); !ok {
		g.record(d)
		return d
	}

	pctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	decision, err := g.primary.Classify(pctx, sub)
	if err != nil {
		logger.CtxWarn(ctx, "primary moderation failed, using fallback",
			"error", err.Error(),
			"timeout", g.timeout.String(),
		)
		metrics.ModerationFallbacks.Inc()
		d := g.fallback.Classify(sub)
		g.record(d)
		return d
	}

	decision.Source = SourcePrimary
	g.record(decision)
	return decision
}

func (g *Gate) record(d Decision) {
	result := "approved"
	if !d.Approved {
		result = "rejected"
	}
	metrics.ModerationDecisions.WithLabelValues(string(d.Source), result).Inc()
}
