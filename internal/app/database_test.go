package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDBQueryForTrace(t *testing.T) {
	got := formatDBQueryForTrace("  SELECT id\n\tFROM fixtures\n WHERE status = $1 ")
	assert.Equal(t, "SELECT id FROM fixtures WHERE status = $1", got)

	assert.Equal(t, "", formatDBQueryForTrace(" \n "))

	long := formatDBQueryForTrace("SELECT " + strings.Repeat("x", maxTracedQueryLength))
	assert.Len(t, long, maxTracedQueryLength+3)
	assert.True(t, strings.HasSuffix(long, "..."))
}
