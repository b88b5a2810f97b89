package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeIsSortedAndStable(t *testing.T) {
	text, err := JSON{}.Encode(map[string]int64{"US": 1000, "JP": 2000, "FR": 0})
	require.NoError(t, err)
	assert.Equal(t, `{"FR":0,"JP":2000,"US":1000}`, text)

	empty, err := JSON{}.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, empty)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]int64
		wantErr bool
	}{
		{"object", `{"JP":2000,"US":1000}`, map[string]int64{"JP": 2000, "US": 1000}, false},
		{"empty object", `{}`, map[string]int64{}, false},
		{"null", `null`, map[string]int64{}, false},
		{"large epoch millis", `{"440":1609459200000}`, map[string]int64{"440": 1609459200000}, false},
		{"truncated", `{"JP":20`, nil, true},
		{"array", `[1,2]`, nil, true},
		{"string value", `{"JP":"2000"}`, nil, true},
		{"fraction", `{"JP":1.5}`, nil, true},
		{"not json", `JP=2000`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSON{}.Decode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeRejectsInvalidUTF8Keys(t *testing.T) {
	_, err := JSON{}.Encode(map[string]int64{"\xff": 1, "\xfe": 2})
	assert.ErrorIs(t, err, ErrInvalidKey)

	text, err := JSON{}.Encode(map[string]int64{"日本": 1, "é": 2})
	require.NoError(t, err)
	got, err := JSON{}.Decode(text)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"日本": 1, "é": 2}, got)
}
