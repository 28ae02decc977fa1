package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "A区", expected: "a区"},
		{input: " D区                        ", expected: "d区"},
		{input: "校 本 部\t", expected: "校本部"},
	}

	for _, row := range table {
		require.Equal(t, row.expected, NormalizeName(row.input))
	}
}

func TestCollapseSpace(t *testing.T) {
	require.Equal(t, "查 看", CollapseSpace("  查   看 \n"))
}
