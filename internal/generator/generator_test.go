package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/config"
)

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGemini(context.Background(), config.LLMConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}

func TestGenerationErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := &GenerationError{Op: "generate_content", Err: cause}

	assert.Contains(t, err.Error(), "generate_content")
	assert.ErrorIs(t, err, cause)

	var genErr *GenerationError
	assert.ErrorAs(t, error(err), &genErr)
}

func TestLooksLikeProgram(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"valid program", "reachable(X, Y) :- edge(X, Y).", true},
		{"facts only, no rule", "edge(/a, /b).", false},
		{"empty", "", false},
		{"prose", "Sure, here is an explanation of reachability.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeProgram(tt.response))
		})
	}
}
