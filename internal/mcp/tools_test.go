package mcp

import (
	"testing"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func TestSimpleSchema(t *testing.T) {
	schema := SimpleSchema(map[string]string{
		"subtopic": "string",
		"question": "string",
		"scores":   "[]float64",
	})

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"question", "scores", "subtopic"}, schema.Required)
	require.Equal(t, "string", schema.Properties["question"].Type)
	require.Equal(t, "array", schema.Properties["scores"].Type)
	require.Equal(t, "number", schema.Properties["scores"].Items.Type)
}

func TestGoTypeToJSONSchema(t *testing.T) {
	tests := []struct {
		name      string
		goType    string
		wantType  string
		wantItems string
	}{
		{name: "string", goType: "string", wantType: "string"},
		{name: "integer", goType: "int64", wantType: "integer"},
		{name: "number", goType: "float32", wantType: "number"},
		{name: "boolean", goType: "bool", wantType: "boolean"},
		{name: "array", goType: "[]string", wantType: "array", wantItems: "string"},
		{name: "fallback", goType: "customType", wantType: "string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := goTypeToJSONSchema(tt.goType)

			require.Equal(t, tt.wantType, got.Type)

			if tt.wantItems != "" {
				require.NotNil(t, got.Items)
				require.Equal(t, tt.wantItems, got.Items.Type)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	schema := describe(SimpleSchema(map[string]string{"topic": "string"}), map[string]string{
		"topic":   "Topic to outline",
		"unknown": "ignored",
	})

	require.Equal(t, "Topic to outline", schema.Properties["topic"].Description)
	require.NotContains(t, schema.Properties, "unknown")
}

func TestResultHelpers(t *testing.T) {
	text := TextResult("ok")
	require.False(t, text.IsError)
	require.Len(t, text.Content, 1)

	failed := ErrorResult("failed")
	require.True(t, failed.IsError)
	require.Equal(t, "failed", failed.Content[0].(*mcpgo.TextContent).Text)

	encoded, err := JSONResult(map[string]any{"answer": 42})
	require.NoError(t, err)
	require.JSONEq(t, `{"answer":42}`, encoded.Content[0].(*mcpgo.TextContent).Text)

	_, err = JSONResult(map[string]any{"bad": make(chan int)})
	require.ErrorContains(t, err, "failed to marshal result")
}

func TestParseArguments(t *testing.T) {
	t.Run("nil request and empty args return empty map", func(t *testing.T) {
		args, err := ParseArguments(nil)
		require.NoError(t, err)
		require.Empty(t, args)

		args, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{}})
		require.NoError(t, err)
		require.Empty(t, args)
	})

	t.Run("valid arguments are parsed", func(t *testing.T) {
		req := &mcpgo.CallToolRequest{
			Params: &mcpgo.CallToolParamsRaw{
				Arguments: []byte(`{"topic":"Gravity","count":3}`),
			},
		}

		args, err := ParseArguments(req)
		require.NoError(t, err)
		require.Equal(t, "Gravity", args["topic"])
		require.Equal(t, float64(3), args["count"])
	})

	t.Run("invalid json returns wrapped error", func(t *testing.T) {
		req := &mcpgo.CallToolRequest{
			Params: &mcpgo.CallToolParamsRaw{
				Arguments: []byte(`{"topic":`),
			},
		}

		args, err := ParseArguments(req)
		require.Error(t, err)
		require.Nil(t, args)
		require.Contains(t, err.Error(), "failed to unmarshal arguments")
	})
}

func TestStringArgument(t *testing.T) {
	args := map[string]any{"topic": "Gravity", "empty": "", "count": float64(3)}

	value, err := StringArgument(args, "topic")
	require.NoError(t, err)
	require.Equal(t, "Gravity", value)

	value, err = StringArgument(args, "empty")
	require.NoError(t, err)
	require.Empty(t, value)

	_, err = StringArgument(args, "count")
	require.EqualError(t, err, `argument "count" must be a string`)

	_, err = StringArgument(args, "subtopic")
	require.EqualError(t, err, `missing required argument "subtopic"`)
}
