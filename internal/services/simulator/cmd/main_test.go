package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseZoneIDs(t *testing.T) {
	ids, err := parseZoneIDs("1, 2,7")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 7}, ids)

	ids, err = parseZoneIDs(" 5 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)

	ids, err = parseZoneIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseZoneIDs("1,x")
	assert.Error(t, err)

	_, err = parseZoneIDs("0")
	assert.Error(t, err)
}
