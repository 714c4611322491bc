package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePings(t *testing.T) {
	t.Run("single object", func(t *testing.T) {
		res, err := DecodePings([]byte(`{"user_id":"u1","lat":28.7041,"lon":77.1025}`))
		require.NoError(t, err)
		assert.Empty(t, res.Rejected)
		if diff := cmp.Diff([]Ping{{UserID: "u1", Lat: 28.7041, Lon: 77.1025}}, res.Pings); diff != "" {
			t.Fatalf("pings mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("array keeps submission order", func(t *testing.T) {
		body := `[
			{"user_id":"a","lat":1,"lon":2},
			{"user_id":"b","lat":3,"lon":4},
			{"user_id":"c","lat":5,"lon":6}
		]`
		res, err := DecodePings([]byte(body))
		require.NoError(t, err)
		require.Len(t, res.Pings, 3)
		assert.Equal(t, "a", res.Pings[0].UserID)
		assert.Equal(t, "b", res.Pings[1].UserID)
		assert.Equal(t, "c", res.Pings[2].UserID)
	})

	t.Run("partial batch skips bad items", func(t *testing.T) {
		body := `[
			{"user_id":"ok","lat":28.7041,"lon":77.1025},
			{"user_id":"x"},
			{"user_id":"y","lat":null,"lon":1},
			{"user_id":"z","lat":"28.7","lon":1},
			{"user_id":"w","lat":95,"lon":1},
			42,
			null
		]`
		res, err := DecodePings([]byte(body))
		require.NoError(t, err)
		require.Len(t, res.Pings, 1)
		assert.Equal(t, "ok", res.Pings[0].UserID)

		require.Len(t, res.Rejected, 6)
		indices := make([]int, 0, len(res.Rejected))
		for _, r := range res.Rejected {
			assert.ErrorIs(t, r.Err, ErrInvalidPing)
			indices = append(indices, r.Index)
		}
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, indices)
	})

	t.Run("missing user id is allowed", func(t *testing.T) {
		res, err := DecodePings([]byte(`{"lat":0,"lon":0}`))
		require.NoError(t, err)
		require.Len(t, res.Pings, 1)
		assert.Empty(t, res.Pings[0].UserID)
	})

	t.Run("numeric user id kept as text", func(t *testing.T) {
		res, err := DecodePings([]byte(`{"user_id":42,"lat":0,"lon":0}`))
		require.NoError(t, err)
		require.Len(t, res.Pings, 1)
		assert.Equal(t, "42", res.Pings[0].UserID)
	})

	t.Run("empty array", func(t *testing.T) {
		res, err := DecodePings([]byte(`[]`))
		require.NoError(t, err)
		assert.Empty(t, res.Pings)
		assert.Empty(t, res.Rejected)
	})
}

func TestDecodePings_MalformedBody(t *testing.T) {
	bodies := map[string]string{
		"not json":     "not json",
		"truncated":    `{"lat": 1,`,
		"empty":        "",
		"whitespace":   "   \n",
		"scalar":       "42",
		"string":       `"hello"`,
		"json null":    "null",
		"trailing doc": `{"lat":1,"lon":2} {"lat":3,"lon":4}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePings([]byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedBody)
		})
	}
}
