// Package extract turns fetched page text into structured company fields by
// asking a language model. Confidence scores come verbatim from the model;
// this package never invents them.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-intel/internal/model"
	"github.com/sells-group/company-intel/internal/ratelimit"
	"github.com/sells-group/company-intel/internal/resilience"
	"github.com/sells-group/company-intel/pkg/anthropic"
)

const defaultMaxChars = 12000

const systemPrompt = `You are a company information extractor. Analyze the
provided page text and extract specific company information. Only include
information explicitly stated in the text. For each field report a
confidence score between 0 and 1.

Respond with a single JSON object keyed by field name. Each present field is
an object {"value": "...", "confidence": 0.0-1.0, "evidence": "exact text
the value came from"}. Use null for fields the text does not support.

Fields: company_name, company_location, products_and_services,
company_overview, target_clients.`

// Extractor produces a partial CompanyInfo from page text.
type Extractor interface {
	Extract(ctx context.Context, companyName, text, sourceURL string) (map[model.Field]model.FieldValue, error)
}

// ClaudeExtractor implements Extractor over the Anthropic Messages API.
type ClaudeExtractor struct {
	client   anthropic.Client
	limiter  *ratelimit.Registry
	policy   resilience.Policy
	model    string
	maxChars int
}

// NewClaudeExtractor creates a ClaudeExtractor. maxChars bounds how much
// page text is sent per call; 0 uses the default budget.
func NewClaudeExtractor(client anthropic.Client, limiter *ratelimit.Registry, policy resilience.Policy, modelID string, maxChars int) *ClaudeExtractor {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	policy.OnRetry = resilience.RetryLogger("anthropic", "extract")
	return &ClaudeExtractor{
		client:   client,
		limiter:  limiter,
		policy:   policy,
		model:    modelID,
		maxChars: maxChars,
	}
}

// Extract asks the model for the five fields. Malformed model output is
// retried as transient; after retries are exhausted the caller receives an
// empty partial result and the error, never a panic or corrupted state.
// Authentication failures propagate as job-fatal.
func (e *ClaudeExtractor) Extract(ctx context.Context, companyName, text, sourceURL string) (map[model.Field]model.FieldValue, error) {
	text = TruncateByRelevance(text, relevanceKeywords(), e.maxChars)

	prompt := fmt.Sprintf(
		"Company being researched: %s\nSource URL: %s\n\nPage text:\n%s",
		companyName, sourceURL, text,
	)

	fields, err := resilience.DoVal(ctx, e.policy, func(ctx context.Context) (map[model.Field]model.FieldValue, error) {
		if err := e.limiter.Wait(ctx, ratelimit.ResourceLLM); err != nil {
			return nil, eris.Wrap(err, "extract: rate limit wait")
		}

		resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.model,
			MaxTokens: 1024,
			System:    systemPrompt,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			return nil, classifyAPIError(err)
		}

		parsed, perr := parseFields(resp.Text, sourceURL)
		if perr != nil {
			// Malformed output is worth one more model call.
			return nil, resilience.NewTransientError(perr, 0)
		}
		return parsed, nil
	})
	if err != nil {
		return map[model.Field]model.FieldValue{}, err
	}

	zap.L().Debug("extraction complete",
		zap.String("source", sourceURL),
		zap.Int("fields", len(fields)),
	)
	return fields, nil
}

// classifyAPIError maps Anthropic API failures onto the engine's taxonomy.
func classifyAPIError(err error) error {
	var apiErr *anthropic.APIError
	if !eris.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
		return resilience.NewFatalError("language model authentication failed", err)
	case resilience.IsTransientHTTPStatus(apiErr.StatusCode):
		return resilience.NewTransientError(err, apiErr.StatusCode)
	default:
		return err
	}
}

// fieldPayload is one field object in the model's JSON answer.
type fieldPayload struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

// parseFields decodes the model's JSON answer into FieldValues. Fields the
// model reported as null, empty, or zero-confidence are omitted so nothing
// is ever fabricated.
func parseFields(text, sourceURL string) (map[model.Field]model.FieldValue, error) {
	cleaned := cleanJSON(text)

	var raw map[string]*fieldPayload
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, eris.Wrap(err, "extract: parse model output")
	}

	out := make(map[model.Field]model.FieldValue)
	for _, f := range model.Fields {
		p := raw[string(f)]
		if p == nil {
			continue
		}
		value := valueToString(p.Value)
		if value == "" || p.Confidence <= 0 {
			continue
		}
		if p.Confidence > 1 {
			p.Confidence = 1
		}
		out[f] = model.FieldValue{
			Value:      value,
			Confidence: p.Confidence,
			Source:     sourceURL,
			Evidence:   p.Evidence,
		}
	}
	return out, nil
}

// valueToString normalizes string or list values from the model.
func valueToString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		var parts []string
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// relevanceKeywords seeds truncation scoring with the navigation keyword set
// plus the field names themselves.
func relevanceKeywords() []string {
	kws := []string{
		"about", "company", "products", "services", "clients",
		"customers", "contact", "locations", "overview", "team",
	}
	for _, f := range model.Fields {
		kws = append(kws, strings.Fields(f.DisplayName())...)
	}
	return kws
}
