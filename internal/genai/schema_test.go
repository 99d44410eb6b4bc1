package genai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func scenarioBatchSchema() *Schema {
	item := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"title":       {Type: TypeString},
			"description": {Type: TypeString},
			"keyDecision": {Type: TypeString},
		},
		Required: []string{"title", "description", "keyDecision"},
	}
	return &Schema{Type: TypeArray, Items: item, MinItems: 10, MaxItems: 10}
}

func TestSchemaWireFormat(t *testing.T) {
	doc := scenarioBatchSchema().wire()

	require.Equal(t, "ARRAY", doc["type"])
	require.Equal(t, 10, doc["minItems"])
	require.Equal(t, 10, doc["maxItems"])

	items, ok := doc["items"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "OBJECT", items["type"])
	require.ElementsMatch(t, []string{"title", "description", "keyDecision"}, items["required"])

	props, ok := items["properties"].(map[string]any)
	require.True(t, ok)
	title, ok := props["title"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "STRING", title["type"])
}

func TestSchemaValidate(t *testing.T) {
	schema := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"openingPrompt": {Type: TypeString},
		},
		Required: []string{"openingPrompt"},
	}

	t.Run("conforming document passes", func(t *testing.T) {
		violations, err := schema.validate(map[string]any{"openingPrompt": "Welcome."})
		require.NoError(t, err)
		require.Empty(t, violations)
	})

	t.Run("missing required field reported", func(t *testing.T) {
		violations, err := schema.validate(map[string]any{})
		require.NoError(t, err)
		require.NotEmpty(t, violations)
	})

	t.Run("wrong type reported", func(t *testing.T) {
		violations, err := schema.validate(map[string]any{"openingPrompt": 42.0})
		require.NoError(t, err)
		require.NotEmpty(t, violations)
	})
}

func TestSchemaValidateCardinality(t *testing.T) {
	schema := scenarioBatchSchema()

	tenItems := make([]any, 10)
	for i := range tenItems {
		tenItems[i] = map[string]any{
			"title":       "t",
			"description": "d",
			"keyDecision": "k",
		}
	}

	t.Run("exactly ten passes", func(t *testing.T) {
		violations, err := schema.validate(tenItems)
		require.NoError(t, err)
		require.Empty(t, violations)
	})

	t.Run("nine rejected", func(t *testing.T) {
		violations, err := schema.validate(tenItems[:9])
		require.NoError(t, err)
		require.NotEmpty(t, violations)
	})

	t.Run("item missing a field rejected", func(t *testing.T) {
		bad := append(append([]any{}, tenItems[:9]...), map[string]any{"title": "t"})
		violations, err := schema.validate(bad)
		require.NoError(t, err)
		require.NotEmpty(t, violations)
	})
}
