package aimatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

const systemPrompt = `You match narration QC phrases against script pages.
You will receive PAGE TEXT and a TARGET PHRASE. The phrase is a lossy
transcription of something on the page. Reply with the exact, verbatim
substring of PAGE TEXT that the phrase refers to: copy it character for
character, including punctuation. If you cannot find a confident match,
reply with the single word NONE. Reply with nothing else.`

// Gemini implements Engine over the Google generative AI API.
type Gemini struct {
	apiKey   string
	settings settings
}

// NewGemini builds a Gemini-backed matcher.
func NewGemini(apiKey string, opts ...Option) *Gemini {
	return &Gemini{
		apiKey:   apiKey,
		settings: applyOptions(settings{model: defaultGeminiModel}, opts),
	}
}

func (g *Gemini) Name() string { return "gemini" }

// Suggest asks the model for a verbatim match. The caller still owns the
// substring verification; this method only trims and rejects the NONE
// sentinel.
func (g *Gemini) Suggest(ctx context.Context, pageText, phrase string) (string, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("aimatch: create client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.settings.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](g.settings.temperature),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	prompt := fmt.Sprintf("PAGE TEXT:\n%s\n\nTARGET PHRASE:\n%s", pageText, phrase)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("aimatch: generate: %w", err)
	}
	return ExtractSuggestion(resp), nil
}

// ExtractSuggestion pulls the candidate substring out of a model
// response, mapping the NONE sentinel (and empty responses) to "".
func ExtractSuggestion(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" || strings.EqualFold(out, "NONE") {
		return ""
	}
	return out
}
