package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	var typedNil *int
	one := 1

	require.Panics(t, func() { NotNil(nil, "nil") })
	require.Panics(t, func() { NotNil(typedNil, "typed nil") })
	require.NotPanics(t, func() { NotNil(&one, "pointer") })
	require.NotPanics(t, func() { NotNil(one, "value") })
}

func TestNotEmptyStr(t *testing.T) {
	require.PanicsWithValue(t, "expected room to be non-empty", func() { NotEmptyStr("", "room") })
	require.NotPanics(t, func() { NotEmptyStr("101", "room") })
}
