package formatting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/pkg/formatting"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"1KB", 1024},
		{"200MB", 200 << 20},
		{"1.5 gb", 1536 << 20},
		{" 2TB ", 2 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBytesInvalid(t *testing.T) {
	for _, in := range []string{"", "MB", "-5MB", "10XB"} {
		_, err := formatting.ParseBytes(in)
		assert.Error(t, err, in)
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatting.FormatBytes(0))
	assert.Equal(t, "1023 B", formatting.FormatBytes(1023))
	assert.Equal(t, "1.5 KB", formatting.FormatBytes(1536))
	assert.Equal(t, "200.0 MB", formatting.FormatBytes(200<<20))
}

type relevance struct {
	RelevantEvalSets []struct {
		ID       string `json:"id"`
		Relevant bool   `json:"relevant"`
	} `json:"relevantEvalSets"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"raw", `{"relevantEvalSets":[{"id":"g1","relevant":true}]}`},
		{"fenced", "```json\n{\"relevantEvalSets\":[{\"id\":\"g1\",\"relevant\":true}]}\n```"},
		{"prose", "Here you go: {\"relevantEvalSets\":[{\"id\":\"g1\",\"relevant\":true}]} Thanks."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[relevance](tt.content)
			require.NoError(t, err)
			require.Len(t, got.RelevantEvalSets, 1)
			assert.Equal(t, "g1", got.RelevantEvalSets[0].ID)
			assert.True(t, got.RelevantEvalSets[0].Relevant)
		})
	}
}

func TestParseFailure(t *testing.T) {
	_, err := formatting.Parse[relevance]("not json at all")
	assert.ErrorIs(t, err, formatting.ErrParseFailed)
}
