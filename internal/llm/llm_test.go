package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: ` {"a":1} `, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```\ntrailing", want: `{"a":1}`},
		{name: "unterminated", in: "```json\n{\"a\":1}", want: `{"a":1}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}
