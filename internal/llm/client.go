package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/extraction"
	"github.com/sdrf-annotator/backend/internal/ontology"
	"github.com/sdrf-annotator/backend/internal/sdrf"
	"github.com/sdrf-annotator/backend/pkg/circuitbreaker"
	"github.com/sdrf-annotator/backend/pkg/logger"
	"github.com/sdrf-annotator/backend/pkg/retry"
)

// Client wraps the OpenAI API for the AI-assisted analysis paths. Calls go
// through a circuit breaker and bounded retry with backoff; rate limits,
// 5xx and timeouts retry, other 4xx do not.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TermSuggestion is one term the assistant recovered from step text.
type TermSuggestion struct {
	Term       string  `json:"term"`
	TermType   string  `json:"term_type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

func NewClient(apiKey, model string, temperature float32, maxTokens, timeoutSec int) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.New("llm", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		IsRetryable:    isTransient,
		Logger:         logger.GetLogger(),
	}

	if timeoutSec <= 0 {
		timeoutSec = 60
	}

	logger.Info("LLM client initialized", zap.String("model", model))

	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// isTransient classifies API failures for the retry policy: rate limiting
// and server-side errors are transient, any other 4xx is not. Non-API errors
// (network, timeout) are treated as transient.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return true
		}
		if apiErr.HTTPStatusCode >= 500 {
			return true
		}
		return false
	}
	return true
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage, functions []openai.FunctionDefinition) (*openai.ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result *openai.ChatCompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    messages,
				Temperature: c.temperature,
				MaxTokens:   c.maxTokens,
				Functions:   functions,
			})
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			result = &resp
			return nil
		})
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExtractTerms asks the assistant for candidate terms the rule set may have
// missed (strain codes, lab abbreviations implying an organism, trade names).
func (c *Client) ExtractTerms(ctx context.Context, text string) ([]TermSuggestion, error) {
	systemPrompt := `You are a proteomics metadata expert. Extract biological and analytical terms from laboratory protocol step text.

Term types: organism, tissue, disease, instrument, chemical, modification, procedure, cellular_component.

Include terms implied indirectly (e.g. a strain code like "C57BL/6" implies mouse, "HUVEC" implies human). Return ONLY a JSON array:
[{"term": "mouse", "term_type": "organism", "confidence": 0.85, "reason": "C57BL/6 strain code"}]`

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Extract terms from this protocol step:\n\n%s\n\nReturn JSON only.", text)},
	}

	resp, err := c.complete(ctx, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to extract terms: %w", err)
	}

	terms, err := parseTermSuggestions(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	logger.Debug("LLM terms extracted",
		zap.Int("count", len(terms)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return terms, nil
}

// ToolExecutor is the deterministic backend the assistant's tool calls are
// dispatched against during enhanced analysis.
type ToolExecutor interface {
	SearchOntology(term string, vocabTypes []string) []ontology.MatchResult
	SearchModificationDatabase(term string) []ontology.MatchResult
	ExtractTerms(text string) []extraction.ExtractedTerm
	ValidateFormat(column, value string) bool
}

// ToolAnalysis is the outcome of an enhanced tool-calling analysis.
// OntologySearches counts how often the assistant actually consulted the
// vocabulary tools; the analyzer's failsafe keys off a zero count.
type ToolAnalysis struct {
	Suggestions      map[string][]sdrf.Suggestion
	OntologySearches int
	Rounds           int
	Usage            Usage
}

const maxToolRounds = 5

// AnalyzeWithTools runs the enhanced path: the assistant may call the named
// tools zero or more times before producing a suggestion bundle.
func (c *Client) AnalyzeWithTools(ctx context.Context, text string, exec ToolExecutor) (*ToolAnalysis, error) {
	systemPrompt := `You are a proteomics metadata expert generating SDRF-Proteomics suggestions for a protocol step.

Use the provided tools to look terms up in the controlled vocabularies before suggesting values. Prefer exact ontology hits over guesses.

When done, return ONLY a JSON object:
{"sdrf_suggestions": {"organism": [{"value": "Homo sapiens", "confidence": 0.95, "accession": "NCBITaxon:9606"}]}}`

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Analyze this protocol step:\n\n%s", text)},
	}

	analysis := &ToolAnalysis{}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := c.complete(ctx, messages, toolDefinitions)
		if err != nil {
			return nil, fmt.Errorf("enhanced analysis failed: %w", err)
		}

		analysis.Rounds = round + 1
		analysis.Usage.PromptTokens += resp.Usage.PromptTokens
		analysis.Usage.CompletionTokens += resp.Usage.CompletionTokens
		analysis.Usage.TotalTokens += resp.Usage.TotalTokens

		message := resp.Choices[0].Message
		if message.FunctionCall == nil {
			suggestions, err := parseSuggestionBundle(message.Content)
			if err != nil {
				return nil, err
			}
			analysis.Suggestions = suggestions
			return analysis, nil
		}

		messages = append(messages, message)
		result := c.dispatchTool(message.FunctionCall, exec, analysis)
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleFunction,
			Name:    message.FunctionCall.Name,
			Content: result,
		})
	}

	return nil, fmt.Errorf("enhanced analysis exceeded %d tool rounds", maxToolRounds)
}

var toolDefinitions = []openai.FunctionDefinition{
	{
		Name:        "search_ontology",
		Description: "Search the controlled vocabularies for a term. Returns ranked matches with accessions.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"term": map[string]interface{}{"type": "string"},
				"vocabulary_types": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
			"required": []string{"term"},
		},
	},
	{
		Name:        "search_modification_database",
		Description: "Search the protein modification vocabulary (Unimod) for a modification name.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"term": map[string]interface{}{"type": "string"},
			},
			"required": []string{"term"},
		},
	},
	{
		Name:        "extract_terms",
		Description: "Run the rule-based term extractor over text.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{"type": "string"},
			},
			"required": []string{"text"},
		},
	},
	{
		Name:        "validate_format",
		Description: "Check whether a value is well formed for an SDRF column.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"column": map[string]interface{}{"type": "string"},
				"value":  map[string]interface{}{"type": "string"},
			},
			"required": []string{"column", "value"},
		},
	},
}

func (c *Client) dispatchTool(call *openai.FunctionCall, exec ToolExecutor, analysis *ToolAnalysis) string {
	var args struct {
		Term            string   `json:"term"`
		VocabularyTypes []string `json:"vocabulary_types"`
		Text            string   `json:"text"`
		Column          string   `json:"column"`
		Value           string   `json:"value"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return fmt.Sprintf(`{"error": "malformed arguments: %s"}`, err)
	}

	logger.Debug("Dispatching assistant tool call", zap.String("tool", call.Name))

	switch call.Name {
	case "search_ontology":
		analysis.OntologySearches++
		return marshalToolResult(exec.SearchOntology(args.Term, args.VocabularyTypes))
	case "search_modification_database":
		analysis.OntologySearches++
		return marshalToolResult(exec.SearchModificationDatabase(args.Term))
	case "extract_terms":
		return marshalToolResult(exec.ExtractTerms(args.Text))
	case "validate_format":
		return fmt.Sprintf(`{"valid": %t}`, exec.ValidateFormat(args.Column, args.Value))
	default:
		return fmt.Sprintf(`{"error": "unknown tool %s"}`, call.Name)
	}
}

func marshalToolResult(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to encode result: %s"}`, err)
	}
	return string(data)
}

func parseTermSuggestions(content string) ([]TermSuggestion, error) {
	payload := stripFences(content)

	var terms []TermSuggestion
	if err := json.Unmarshal([]byte(payload), &terms); err != nil {
		return nil, fmt.Errorf("failed to parse term suggestions: %w", err)
	}

	valid := terms[:0]
	for _, t := range terms {
		if strings.TrimSpace(t.Term) == "" {
			continue
		}
		if t.Confidence < 0 || t.Confidence > 1 {
			continue
		}
		valid = append(valid, t)
	}
	return valid, nil
}

func parseSuggestionBundle(content string) (map[string][]sdrf.Suggestion, error) {
	payload := stripFences(content)

	var wrapper struct {
		SDRFSuggestions map[string][]sdrf.Suggestion `json:"sdrf_suggestions"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion bundle: %w", err)
	}
	if wrapper.SDRFSuggestions == nil {
		wrapper.SDRFSuggestions = map[string][]sdrf.Suggestion{}
	}
	return wrapper.SDRFSuggestions, nil
}

// stripFences tolerates models that wrap JSON in markdown code fences or
// prose; it returns the outermost JSON value in the content.
func stripFences(content string) string {
	content = strings.TrimSpace(content)

	if start := strings.Index(content, "```"); start >= 0 {
		rest := content[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			content = strings.TrimSpace(rest[:end])
		}
	}

	objStart := strings.IndexAny(content, "[{")
	if objStart < 0 {
		return content
	}
	var objEnd int
	if content[objStart] == '[' {
		objEnd = strings.LastIndex(content, "]")
	} else {
		objEnd = strings.LastIndex(content, "}")
	}
	if objEnd <= objStart {
		return content
	}
	return content[objStart : objEnd+1]
}
