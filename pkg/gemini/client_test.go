package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextOfJoinsTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{
			genai.Text("```json\n"),
			genai.Blob{MIMEType: "image/png"},
			genai.Text(`{"rawMaterials":[]}`),
		}},
	}}}

	got, err := textOf(resp)
	require.NoError(t, err)
	assert.Equal(t, "```json\n{\"rawMaterials\":[]}", got)
}

func TestTextOfEmpty(t *testing.T) {
	_, err := textOf(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = textOf(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = textOf(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}},
	}}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "gemini-2.0-flash-001")
	assert.Error(t, err)
}
