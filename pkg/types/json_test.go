package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONKeepsLargeIntegers(t *testing.T) {
	const doc = `{"entityId":12345678901234567891,"x":9007199254740993,"ratio":0.25}`

	var v map[string]any
	require.NoError(t, DecodeJSON(strings.NewReader(doc), &v))
	assert.Equal(t, json.Number("12345678901234567891"), v["entityId"])

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
	assert.Contains(t, string(out), "12345678901234567891")
	assert.Contains(t, string(out), "9007199254740993")
}

func TestUnmarshalJSON(t *testing.T) {
	var v any
	require.NoError(t, UnmarshalJSON([]byte(` {"a":[1,2]} `), &v))
	assert.Equal(t, map[string]any{"a": []any{json.Number("1"), json.Number("2")}}, v)

	assert.Error(t, UnmarshalJSON([]byte(`{"a":1} {"b":2}`), &v))
	assert.Error(t, UnmarshalJSON([]byte(`{"a":`), &v))
}

func TestCloneObjectIsDeep(t *testing.T) {
	orig := map[string]any{
		"theme":    "dark",
		"layout":   map[string]any{"cols": json.Number("3")},
		"entities": []any{"light.a", map[string]any{"id": "light.b"}},
	}
	cp := CloneObject(orig)
	require.Equal(t, orig, cp)

	cp["layout"].(map[string]any)["cols"] = json.Number("4")
	cp["entities"].([]any)[1].(map[string]any)["id"] = "changed"
	cp["theme"] = "light"

	assert.Equal(t, json.Number("3"), orig["layout"].(map[string]any)["cols"])
	assert.Equal(t, "light.b", orig["entities"].([]any)[1].(map[string]any)["id"])
	assert.Equal(t, "dark", orig["theme"])

	assert.Nil(t, CloneObject(nil))
	assert.Equal(t, "x", CloneValue("x"))
}
