package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubClassifier struct {
	decision Decision
	err      error
	delay    time.Duration
	calls    int
}

func (s *stubClassifier) Classify(ctx context.Context, _ Submission) (Decision, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		}
	}
	return s.decision, s.err
}

func TestGate_PrimaryDecides(t *testing.T) {
	primary := &stubClassifier{decision: Decision{Approved: false, Reason: "flagged: violence", Confidence: 0.97}}
	gate := NewGate(primary, NewRuleClassifier(RuleOptions{}), time.Second)

	d := gate.Evaluate(context.Background(), Submission{Context: "a perfectly normal photo"})

	assert.False(t, d.Approved)
	assert.Equal(t, SourcePrimary, d.Source)
	assert.Equal(t, "flagged: violence", d.Reason)
	assert.Equal(t, 1, primary.calls)
}

func TestGate_FallbackOnPrimaryError(t *testing.T) {
	primary := &stubClassifier{err: errors.New("connection refused")}
	gate := NewGate(primary, NewRuleClassifier(RuleOptions{}), time.Second)

	d := gate.Evaluate(context.Background(), Submission{Context: "Which outfit works for an interview?"})
	assert.True(t, d.Approved)
	assert.Equal(t, SourceFallback, d.Source)

	d = gate.Evaluate(context.Background(), Submission{Context: "rate my NSFW shoot"})
	assert.False(t, d.Approved)
	assert.Equal(t, SourceFallback, d.Source)
}

func TestGate_FallbackOnTimeout(t *testing.T) {
	primary := &stubClassifier{decision: Decision{Approved: true}, delay: time.Second}
	gate := NewGate(primary, NewRuleClassifier(RuleOptions{}), 20*time.Millisecond)

	start := time.Now()
	d := gate.Evaluate(context.Background(), Submission{Context: "dating profile photo"})

	assert.True(t, d.Approved)
	assert.Equal(t, SourceFallback, d.Source)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGate_NoPrimaryUsesRules(t *testing.T) {
	gate := NewGate(nil, nil, time.Second)
	d := gate.Evaluate(context.Background(), Submission{Context: "hello"})
	assert.True(t, d.Approved)
	assert.Equal(t, SourceFallback, d.Source)
}

func TestRuleClassifier(t *testing.T) {
	r := NewRuleClassifier(RuleOptions{BlockedTerms: []string{"Forbidden"}, MaxContextLength: 10})

	assert.True(t, r.Classify(Submission{Context: "ok"}).Approved)
	assert.False(t, r.Classify(Submission{Context: "FORBIDDEN"}).Approved)
	assert.False(t, r.Classify(Submission{Context: "ok", Texts: []string{"forbidden label"}}).Approved)
	assert.False(t, r.Classify(Submission{Context: "this context is too long"}).Approved)
	assert.False(t, r.Classify(Submission{Context: "ok", MediaRefs: []string{"ftp://host/a.jpg"}}).Approved)
	assert.True(t, r.Classify(Submission{Context: "ok", MediaRefs: []string{"https://cdn.example.com/a.jpg"}}).Approved)
}

const defaultTestTimeout = 2 * time.Second

func TestGate_MediaRulesApplyBeforePrimary(t *testing.T) {
	primary := &stubClassifier{decision: Decision{Approved: true, Confidence: 0.99}}
	gate := NewGate(primary, NewRuleClassifier(RuleOptions{}), time.Second)

	sub := Submission{Context: "which photo is better", MediaRefs: []string{"javascript:alert(1)"}}
	d := gate.Evaluate(context.Background(), sub)

	assert.False(t, d.Approved)
	assert.Equal(t, "unsupported media reference", d.Reason)
	assert.Equal(t, 0, primary.calls)

	noPrimary := NewGate(nil, NewRuleClassifier(RuleOptions{}), time.Second)
	assert.Equal(t, d.Approved, noPrimary.Evaluate(context.Background(), sub).Approved)
}
