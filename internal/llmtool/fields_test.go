package llmtool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type innerShape struct {
	Kind string `json:"kind" prompt_desc:"shape kind"`
}

type sampleShape struct {
	ID       string            `json:"id" prompt_desc:"identifier"`
	Tags     []string          `json:"tags" prompt:"optional"`
	Mode     string            `json:"mode" prompt_type:"a|b"`
	Inner    innerShape        `json:"inner"`
	Extra    *innerShape       `json:"extra,omitempty" prompt:"optional"`
	Hidden   string            `json:"hidden" prompt:"omit"`
	Lookup   map[string]string `json:"lookup"`
	NoTag    int
	internal string
}

func TestFieldsFromStruct_Flatten(t *testing.T) {
	fields, err := FieldsFromStruct(sampleShape{})
	require.NoError(t, err)

	byName := map[string]PromptField{}
	for _, f := range fields {
		byName[f.Name] = f
	}
	assert.NotContains(t, byName, "hidden")
	assert.NotContains(t, byName, "internal")

	assert.Equal(t, PromptField{Name: "id", Type: "string", Required: true, Description: "identifier"}, byName["id"])
	assert.False(t, byName["tags"].Required)
	assert.Equal(t, "[]string", byName["tags"].Type)
	assert.Equal(t, "a|b", byName["mode"].Type)
	assert.Equal(t, "map[string]string", byName["lookup"].Type)
	assert.Equal(t, "int", byName["noTag"].Type)

	assert.True(t, byName["inner.kind"].Required)
	assert.Equal(t, "shape kind", byName["inner.kind"].Description)
	assert.False(t, byName["extra.kind"].Required, "children of optional parents are optional")
}

func TestFieldsFromStruct_NoFlatten(t *testing.T) {
	opts := DefaultFieldOptions()
	opts.Flatten = false
	fields := MustFieldsFromStruct(&sampleShape{}, opts)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "inner")
	assert.NotContains(t, names, "inner.kind")
}

func TestFieldsFromStruct_Errors(t *testing.T) {
	_, err := FieldsFromStruct(nil)
	assert.Error(t, err)
	_, err = FieldsFromStruct(42)
	assert.Error(t, err)
}
