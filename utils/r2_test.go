package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageKey(t *testing.T) {
	key, err := ImageKey("achievements", "abc", "image/PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "achievements/abc/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)

	_, err = ImageKey("tasks", "abc", "application/pdf")
	assert.Error(t, err)
}
