package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRef_KeepsJSONForm(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		numeric bool
		value   string
	}{
		{name: "string", in: `"ORDER_001"`, value: "ORDER_001"},
		{name: "integer", in: `123`, numeric: true, value: "123"},
		{name: "numeric string stays a string", in: `"123"`, value: "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref OrderRef
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ref))
			assert.Equal(t, tt.value, ref.String())
			assert.Equal(t, tt.numeric, ref.IsNumeric())

			out, err := json.Marshal(ref)
			require.NoError(t, err)
			assert.Equal(t, tt.in, string(out))
		})
	}
}

func TestOrderRef_RejectsNonIntegerNumbers(t *testing.T) {
	var ref OrderRef
	assert.Error(t, json.Unmarshal([]byte(`12.5`), &ref))
	assert.Error(t, json.Unmarshal([]byte(`true`), &ref))
}

func TestOrderRef_NullIsZero(t *testing.T) {
	ref := StringOrderRef("x")
	require.NoError(t, json.Unmarshal([]byte(`null`), &ref))
	assert.True(t, ref.IsZero())
}

func TestIntentStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
}
