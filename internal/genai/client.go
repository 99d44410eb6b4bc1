// Package genai wraps the Gemini generateContent endpoint behind two call
// shapes: schema-constrained JSON generation and normalized free-text
// generation. The client is stateless between calls; the full conversation
// context is re-sent on every invocation.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

const (
	// DefaultModel is the generation model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of an upstream error body is kept in
	// error messages.
	maxErrorBody = 300
)

// HarmCategory names an upstream content-safety category.
type HarmCategory string

const (
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
	HarmCategoryCivicIntegrity   HarmCategory = "HARM_CATEGORY_CIVIC_INTEGRITY"
	HarmCategoryMedical          HarmCategory = "HARM_CATEGORY_MEDICAL"
)

// HarmThreshold is the block threshold applied to a safety category.
type HarmThreshold string

const (
	ThresholdBlockNone           HarmThreshold = "BLOCK_NONE"
	ThresholdBlockLowAndAbove    HarmThreshold = "BLOCK_LOW_AND_ABOVE"
	ThresholdBlockMediumAndAbove HarmThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	ThresholdBlockOnlyHigh       HarmThreshold = "BLOCK_ONLY_HIGH"
)

// DefaultSafetySettings returns the block threshold applied to each of the
// six safety categories when a request does not override them.
func DefaultSafetySettings() map[HarmCategory]HarmThreshold {
	return map[HarmCategory]HarmThreshold{
		HarmCategoryHarassment:       ThresholdBlockMediumAndAbove,
		HarmCategoryHateSpeech:       ThresholdBlockMediumAndAbove,
		HarmCategorySexuallyExplicit: ThresholdBlockMediumAndAbove,
		HarmCategoryDangerousContent: ThresholdBlockMediumAndAbove,
		HarmCategoryCivicIntegrity:   ThresholdBlockMediumAndAbove,
		HarmCategoryMedical:          ThresholdBlockMediumAndAbove,
	}
}

// GenerateConfig carries per-call generation parameters.
type GenerateConfig struct {
	Temperature     float64
	MaxOutputTokens int
	// Safety overrides the per-category block thresholds. Nil means
	// DefaultSafetySettings.
	Safety map[HarmCategory]HarmThreshold
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// APIKey is required.
	APIKey string
	// Model defaults to DefaultModel.
	Model string
	// BaseURL overrides the upstream endpoint, used by tests.
	BaseURL string
	// Timeout bounds each request; expiry surfaces as a TransportError.
	// Defaults to 60s.
	Timeout time.Duration
}

// Client calls the generateContent endpoint. Construct one per process
// during startup and pass it to each component by dependency injection.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a generation client. It fails fast when the API key is
// absent so a misconfigured service never reaches its first request.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("genai: API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Wire types for the generateContent request/response.

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text string `json:"text"`
}

type wireGenerationConfig struct {
	Temperature      float64        `json:"temperature"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type wireSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type wireRequest struct {
	SystemInstruction *wireContent         `json:"systemInstruction,omitempty"`
	Contents          []wireContent        `json:"contents"`
	GenerationConfig  wireGenerationConfig `json:"generationConfig"`
	SafetySettings    []wireSafetySetting  `json:"safetySettings,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GenerateText requests a free-text completion and returns the normalized
// candidate text (role labels and surrounding quotes stripped).
func (c *Client) GenerateText(ctx context.Context, system, prompt string, cfg GenerateConfig) (string, error) {
	text, err := c.generate(ctx, system, prompt, cfg, nil)
	if err != nil {
		return "", err
	}

	// A candidate that is nothing but formatting artifacts (a bare role
	// label, empty quotes) is as useless as no candidate at all.
	line := NormalizeLine(text)
	if line == "" {
		return "", ErrEmptyResponse
	}
	return line, nil
}

// GenerateJSON requests a completion constrained to the given schema, parses
// the candidate text as JSON, validates it against the same schema, and
// decodes it into out. Any mismatch fails with a MalformedOutputError; the
// call never substitutes defaults for missing fields.
func (c *Client) GenerateJSON(ctx context.Context, system, prompt string, schema *Schema, cfg GenerateConfig, out any) error {
	if schema == nil {
		return errors.New("genai: GenerateJSON requires a schema")
	}

	text, err := c.generate(ctx, system, prompt, cfg, schema)
	if err != nil {
		return err
	}

	raw := stripCodeFences(text)

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return &MalformedOutputError{Raw: raw, Err: fmt.Errorf("parsing response JSON: %w", err)}
	}

	violations, err := schema.validate(doc)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &MalformedOutputError{
			Raw: raw,
			Err: fmt.Errorf("schema validation failed: %s", joinLimited(violations)),
		}
	}

	if err := mapstructure.Decode(doc, out); err != nil {
		return &MalformedOutputError{Raw: raw, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// generate performs one generateContent call and returns the raw candidate
// text, classifying every failure mode distinctly.
func (c *Client) generate(ctx context.Context, system, prompt string, cfg GenerateConfig, schema *Schema) (string, error) {
	safety := cfg.Safety
	if safety == nil {
		safety = DefaultSafetySettings()
	}

	reqBody := wireRequest{
		Contents: []wireContent{
			{Role: "user", Parts: []wirePart{{Text: prompt}}},
		},
		GenerationConfig: wireGenerationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	}
	if system != "" {
		reqBody.SystemInstruction = &wireContent{Parts: []wirePart{{Text: system}}}
	}
	if schema != nil {
		reqBody.GenerationConfig.ResponseMIMEType = "application/json"
		reqBody.GenerationConfig.ResponseSchema = schema.wire()
	}
	for _, cat := range orderedCategories() {
		if threshold, ok := safety[cat]; ok {
			reqBody.SafetySettings = append(reqBody.SafetySettings, wireSafetySetting{
				Category:  string(cat),
				Threshold: string(threshold),
			})
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("generateContent: %s", string(body)),
		}
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	if wire.PromptFeedback != nil && wire.PromptFeedback.BlockReason != "" {
		return "", &SafetyBlockedError{Reason: wire.PromptFeedback.BlockReason}
	}
	if len(wire.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	candidate := wire.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return "", &SafetyBlockedError{Reason: candidate.FinishReason}
	}
	if len(candidate.Content.Parts) == 0 || candidate.Content.Parts[0].Text == "" {
		return "", ErrEmptyResponse
	}

	return candidate.Content.Parts[0].Text, nil
}

// orderedCategories keeps safety settings in a stable wire order.
func orderedCategories() []HarmCategory {
	return []HarmCategory{
		HarmCategoryHarassment,
		HarmCategoryHateSpeech,
		HarmCategorySexuallyExplicit,
		HarmCategoryDangerousContent,
		HarmCategoryCivicIntegrity,
		HarmCategoryMedical,
	}
}

func joinLimited(msgs []string) string {
	const limit = 5
	if len(msgs) > limit {
		msgs = append(msgs[:limit:limit], fmt.Sprintf("(+%d more)", len(msgs)-limit))
	}
	out := ""
	for i, m := range msgs {
		if i > 0 {
			out += "; "
		}
		out += m
	}
	return out
}
