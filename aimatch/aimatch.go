// Package aimatch adapts an external language model as a last-resort
// sentence matcher: given a page's text and a phrase the deterministic
// strategies could not find, it asks the model for the verbatim page
// substring the phrase refers to. The locator verifies every response
// against the page before trusting it, so a hallucinating provider can
// degrade matches but never corrupt placement.
package aimatch

import "context"

// Engine is the provider contract: one page/phrase pair in, one candidate
// substring out. An empty string means the provider found no match; that
// is not an error.
type Engine interface {
	Name() string
	Suggest(ctx context.Context, pageText, phrase string) (string, error)
}

// Option mutates engine construction knobs without hard-coding
// provider-specific fields into the API surface.
type Option func(*settings)

type settings struct {
	model       string
	temperature float32
	metadata    map[string]string
}

// WithModel overrides the provider's default model name.
func WithModel(model string) Option {
	return func(s *settings) { s.model = model }
}

// WithTemperature sets the sampling temperature. Matching wants verbatim
// retrieval, so the default is 0.
func WithTemperature(t float32) Option {
	return func(s *settings) { s.temperature = t }
}

// WithMetadata passes provider-specific knobs through untouched.
func WithMetadata(md map[string]string) Option {
	return func(s *settings) {
		if len(md) == 0 {
			s.metadata = nil
			return
		}
		s.metadata = make(map[string]string, len(md))
		for k, v := range md {
			s.metadata[k] = v
		}
	}
}

func applyOptions(defaults settings, opts []Option) settings {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}
