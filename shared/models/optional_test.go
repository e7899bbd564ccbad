package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional_UnmarshalJSON(t *testing.T) {
	type patch struct {
		Description Optional[string] `json:"description"`
	}

	tests := []struct {
		name    string
		body    string
		wantSet bool
		want    *string
	}{
		{name: "absent", body: `{}`, wantSet: false},
		{name: "null", body: `{"description": null}`, wantSet: true},
		{name: "value", body: `{"description": "text"}`, wantSet: true, want: Some("text").Value},
		{name: "empty string", body: `{"description": ""}`, wantSet: true, want: Some("").Value},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p patch
			require.NoError(t, json.Unmarshal([]byte(tc.body), &p))
			assert.Equal(t, tc.wantSet, p.Description.Set)
			assert.Equal(t, tc.want, p.Description.Value)
		})
	}

	t.Run("wrong type", func(t *testing.T) {
		var p patch
		assert.Error(t, json.Unmarshal([]byte(`{"description": 5}`), &p))
	})

	t.Run("Null constructor", func(t *testing.T) {
		n := Null[string]()
		assert.True(t, n.Set)
		assert.Nil(t, n.Value)
	})
}
