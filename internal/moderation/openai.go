package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClassifier - основной классификатор на moderation endpoint
type OpenAIClassifier struct {
	client openai.Client
	model  string
}

func NewOpenAIClassifier(opts OpenAIOptions) *OpenAIClassifier {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		// Таймаут задает Gate, ретраи только съедают бюджет
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	model := opts.Model
	if model == "" {
		model = string(openai.ModerationModelOmniModerationLatest)
	}
	return &OpenAIClassifier{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, sub Submission) (Decision, error) {
	inputs := make([]string, 0, len(sub.Texts)+1)
	if strings.TrimSpace(sub.Context) != "" {
		inputs = append(inputs, sub.Context)
	}
	for _, t := range sub.Texts {
		if strings.TrimSpace(t) != "" {
			inputs = append(inputs, t)
		}
	}
	if len(inputs) == 0 {
		return Decision{Approved: true, Confidence: 1}, nil
	}

	resp, err := c.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfStringArray: inputs},
		Model: openai.ModerationModel(c.model),
	})
	if err != nil {
		return Decision{}, fmt.Errorf("moderation request: %w", err)
	}
	if resp == nil || len(resp.Results) == 0 {
		return Decision{}, errors.New("moderation response has no results")
	}

	var (
		flagged    bool
		categories = map[string]struct{}{}
		maxScore   float64
	)
	for _, r := range resp.Results {
		if r.Flagged {
			flagged = true
		}
		for name, hit := range map[string]bool{
			"harassment": r.Categories.Harassment,
			"hate":       r.Categories.Hate,
			"illicit":    r.Categories.Illicit,
			"self_harm":  r.Categories.SelfHarm,
			"sexual":     r.Categories.Sexual,
			"violence":   r.Categories.Violence,
		} {
			if hit {
				categories[name] = struct{}{}
			}
		}
		for _, s := range []float64{
			r.CategoryScores.Harassment,
			r.CategoryScores.Hate,
			r.CategoryScores.Illicit,
			r.CategoryScores.SelfHarm,
			r.CategoryScores.Sexual,
			r.CategoryScores.Violence,
		} {
			if s > maxScore {
				maxScore = s
			}
		}
	}

	if !flagged {
		return Decision{Approved: true, Confidence: 1 - maxScore}, nil
	}

	names := make([]string, 0, len(categories))
	for n := range categories {
		names = append(names, n)
	}
	sort.Strings(names)
	reason := "content flagged by moderation"
	if len(names) > 0 {
		reason += ": " + strings.Join(names, ", ")
	}
	return Decision{Approved: false, Reason: reason, Confidence: maxScore}, nil
}
