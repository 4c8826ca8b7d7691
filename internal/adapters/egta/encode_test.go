package egta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFormNestedMaps(t *testing.T) {
	t.Parallel()

	values, err := encodeForm(map[string]any{
		"auth_token": "tok",
		"scheduler": map[string]any{
			"name":   "sched",
			"active": 1,
			"configuration": map[string]any{
				"fee": "5",
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "tok", values.Get("auth_token"))
	assert.Equal(t, "sched", values.Get("scheduler[name]"))
	assert.Equal(t, "1", values.Get("scheduler[active]"))
	assert.Equal(t, "5", values.Get("scheduler[configuration][fee]"))
}

func TestEncodeFormStringMap(t *testing.T) {
	t.Parallel()

	values, err := encodeForm(map[string]any{
		"selector": map[string]string{"simulator_id": "4"},
	})
	require.NoError(t, err)
	assert.Equal(t, "4", values.Get("selector[simulator_id]"))
}

func TestEncodeFormRepeatsSliceKeys(t *testing.T) {
	t.Parallel()

	values, err := encodeForm(map[string]any{
		"strategies": []string{"a", "b"},
		"ids":        []any{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, values["strategies"])
	assert.Equal(t, []string{"1", "2"}, values["ids"])
}

func TestEncodeFormDropsNilValues(t *testing.T) {
	t.Parallel()

	values, err := encodeForm(map[string]any{
		"name":    "x",
		"omitted": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "x", values.Get("name"))
	_, present := values["omitted"]
	assert.False(t, present)
}

func TestEncodeFormScalars(t *testing.T) {
	t.Parallel()

	values, err := encodeForm(map[string]any{
		"count":  3,
		"share":  0.5,
		"active": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "3", values.Get("count"))
	assert.Equal(t, "0.5", values.Get("share"))
	assert.Equal(t, "true", values.Get("active"))
}

func TestEncodeFormEmptyNestedMapsContributeNothing(t *testing.T) {
	t.Parallel()

	values, err := encodeForm(map[string]any{
		"configuration": map[string]any{},
		"selector":      map[string]string{},
	})
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestEncodeFormRejectsUnsupportedMapTypes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		value any
		want  string
	}{
		{name: "non-string keys", value: map[int]string{1: "x"}, want: "unsupported map type map[int]string"},
		{name: "string keys with non-string values", value: map[string]int{"count": 1}, want: "unsupported map type map[string]int"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := encodeForm(map[string]any{"bad": tc.value})
			require.Error(t, err)
			assert.Contains(t, err.Error(), `form key "bad"`)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
