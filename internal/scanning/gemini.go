package scanning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/expensescan/expensescan/internal/fault"
)

const geminiTimeout = 30 * time.Second

// Gemini implements the ModelCaller interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini ModelCaller instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fault.Errorf(fault.Precondition, "gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Call sends the prompt (plus an optional PNG image) and returns the raw
// model text. Failures are classified: network problems as Transport,
// non-success statuses as ModelRejection (rate limits marked retryable).
func (g *Gemini) Call(ctx context.Context, prompt string, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	parts := []genai.Part{genai.Text(prompt)}
	if image != nil {
		// Images are normalized to PNG before reaching the caller, so the
		// format suffix is always "png".
		parts = append([]genai.Part{genai.ImageData("png", image)}, parts...)
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fault.Errorf(fault.ModelRejection, "no candidates in gemini response")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}
	return responseText.String(), nil
}

func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		fe := fault.New(fault.ModelRejection, "calling gemini", err)
		fe.RateLimited = apiErr.Code == http.StatusTooManyRequests
		return fe
	}
	return fault.New(fault.Transport, "calling gemini", err)
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
