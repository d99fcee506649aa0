package p2p

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestEncodesParams(t *testing.T) {
	req, err := NewRequest("get_block", []interface{}{3})
	require.NoError(t, err)
	assert.Equal(t, "get_block", req.Action)

	var params []int
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, []int{3}, params)
}

func TestRequestJSONEnvelopeShape(t *testing.T) {
	req, err := NewRequest("ping", map[string]string{"k": "v"})
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	_, hasAction := raw["action"]
	_, hasParams := raw["params"]
	assert.True(t, hasAction)
	assert.True(t, hasParams)
}
