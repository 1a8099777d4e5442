package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []Pair
	}{
		{
			name:     "bare array",
			response: `[{"question":"q1","answer":"a1"},{"question":"q2","answer":"a2"}]`,
			want:     []Pair{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}},
		},
		{
			name:     "code fence",
			response: "```json\n[{\"question\":\"q\",\"answer\":\"a\"}]\n```",
			want:     []Pair{{Question: "q", Answer: "a"}},
		},
		{
			name:     "surrounding prose",
			response: `Here are the pairs: [{"question":"q","answer":"a"}] Hope that helps!`,
			want:     []Pair{{Question: "q", Answer: "a"}},
		},
		{
			name:     "empty array",
			response: `[]`,
			want:     []Pair{},
		},
		{
			name:     "blank fields dropped",
			response: `[{"question":"","answer":"a"},{"question":"q","answer":"  "},{"question":"keep","answer":"this"}]`,
			want:     []Pair{{Question: "keep", Answer: "this"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePairs(tt.response)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePairsErrors(t *testing.T) {
	_, err := parsePairs("no json here")
	require.Error(t, err)

	_, err = parsePairs(`[{"question": broken]`)
	require.Error(t, err)
}
