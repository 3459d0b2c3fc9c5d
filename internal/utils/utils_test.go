package utils_test

import (
	"testing"

	"github.com/jrsteele09/dojotv/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValueAndPtr(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, 5, utils.Value(utils.Ptr(5)))
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "b", utils.FirstNonEmpty("", "  ", "b", "c"))
	require.Equal(t, "", utils.FirstNonEmpty())
}

func TestRedact(t *testing.T) {
	require.Equal(t, "***", utils.Redact("short"))
	require.Equal(t, "ey***9Q", utils.Redact("eyJhbGciOi9Q"))
}
