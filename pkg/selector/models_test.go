package selector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{`42`, 42, false},
		{`"42"`, 42, false},
		{`" 7"`, 0, true},
		{`"moscow"`, 0, true},
		{`1.5`, 0, true},
		{`null`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.in), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	var resp RegionResponse
	err := decodeEnvelope([]byte(`{"response":{"current-region":{"id":"1","rgid":225,"name":"Россия"},"parents":[]}}`), &resp)
	require.NoError(t, err)
	assert.Equal(t, ID(225), resp.CurrentRegion.RGID)
	assert.Nil(t, resp.Refinements)
	assert.False(t, resp.HasRefinement(RefinementMetro))

	assert.Error(t, decodeEnvelope([]byte(`{"error":"x"}`), &resp))
	assert.Error(t, decodeEnvelope([]byte(`{"response":null}`), &resp))
	assert.Error(t, decodeEnvelope([]byte(`<html>`), &resp))
	assert.Error(t, decodeEnvelope([]byte(`{"response":{"current-region":{"id":"x"}}}`), &resp))
}
