package aimatch

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestOptions(t *testing.T) {
	s := applyOptions(settings{model: defaultGeminiModel}, []Option{
		WithModel("gemini-1.5-pro"),
		WithTemperature(0.2),
		WithMetadata(map[string]string{"psm": "6"}),
	})
	if s.model != "gemini-1.5-pro" {
		t.Fatalf("model = %q", s.model)
	}
	if s.temperature != 0.2 {
		t.Fatalf("temperature = %v", s.temperature)
	}
	if s.metadata["psm"] != "6" {
		t.Fatalf("metadata = %v", s.metadata)
	}
	if applyOptions(settings{}, []Option{WithMetadata(nil)}).metadata != nil {
		t.Fatal("empty metadata should stay nil")
	}
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}}},
		},
	}
}

func TestExtractSuggestion(t *testing.T) {
	cases := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"verbatim", textResponse("  the dog ran home.\n"), "the dog ran home."},
		{"none sentinel", textResponse("NONE"), ""},
		{"lowercase none", textResponse("none"), ""},
		{"empty", textResponse(""), ""},
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractSuggestion(tc.resp); got != tc.want {
				t.Fatalf("ExtractSuggestion = %q, want %q", got, tc.want)
			}
		})
	}
}
