package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoAction(name string) *FunctionAction {
	return NewFunctionAction(
		name,
		"Echo the given text.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New(echoAction("echo"), echoAction("echo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewRejectsReservedName(t *testing.T) {
	_, err := New(echoAction(DoneName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestGetUnknownAction(t *testing.T) {
	r := MustNew(echoAction("echo"))

	_, err := r.Get("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAction))
}

func TestHasIncludesDone(t *testing.T) {
	r := MustNew(echoAction("echo"))

	assert.True(t, r.Has("echo"))
	assert.True(t, r.Has(DoneName))
	assert.False(t, r.Has("missing"))
}

func TestDefinitionsIncludeDone(t *testing.T) {
	r := MustNew(echoAction("echo"))

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "echo", defs[0].Function.Name)
	assert.Equal(t, DoneName, defs[1].Function.Name)
}

func TestToolsPromptMarksApproval(t *testing.T) {
	r := Defaults()

	prompt := r.ToolsPrompt()
	assert.Contains(t, prompt, "book_excursion")
	assert.Contains(t, prompt, "(requires user approval)")
	assert.Contains(t, prompt, DoneName)
}

func TestExecuteValidatesArguments(t *testing.T) {
	r := MustNew(echoAction("echo"))

	_, err := r.Execute(context.Background(), "echo", `{"wrong":"field"}`)
	require.Error(t, err)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "VALIDATION_ERROR", actionErr.Code)
}

func TestExecuteMalformedJSON(t *testing.T) {
	r := MustNew(echoAction("echo"))

	_, err := r.Execute(context.Background(), "echo", `{not json`)
	require.Error(t, err)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "VALIDATION_ERROR", actionErr.Code)
}

func TestExecuteSuccess(t *testing.T) {
	r := MustNew(echoAction("echo"))

	out, err := r.Execute(context.Background(), "echo", `{"text":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestExecuteWrapsExecutionError(t *testing.T) {
	failing := NewFunctionAction(
		"boom",
		"Always fails.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("kaput")
		},
	)
	r := MustNew(failing)

	_, err := r.Execute(context.Background(), "boom", "")
	require.Error(t, err)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "EXECUTION_ERROR", actionErr.Code)
	assert.Equal(t, "kaput", actionErr.Message)
}

func TestFromStructSchema(t *testing.T) {
	type args struct {
		City string `json:"city" description:"City to look up"`
	}
	a := NewFunctionActionFromStruct(
		"lookup",
		"Look up a city.",
		args{},
		func(ctx context.Context, in map[string]any) (any, error) {
			return in["city"], nil
		},
	)

	schema := a.Parameters()
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
	assert.Equal(t, []string{"city"}, schema["required"])
}

func TestDefaultExcursionActions(t *testing.T) {
	r := Defaults()
	ctx := context.Background()

	out, err := r.Execute(ctx, "available_excursions", "")
	require.NoError(t, err)
	excursions, ok := out.([]Excursion)
	require.True(t, ok)
	require.Len(t, excursions, 3)
	assert.Equal(t, "Sailing", excursions[0].Name)
	assert.Equal(t, []string{"windy"}, excursions[0].IdealInWeather)

	out, err = r.Execute(ctx, "weather", "")
	require.NoError(t, err)
	assert.Equal(t, "sunny", out)

	assert.True(t, r.RequiresApproval("book_excursion"))
	assert.False(t, r.RequiresApproval("weather"))

	out, err = r.Execute(ctx, "book_excursion", `{"excursion":"Sailing"}`)
	require.NoError(t, err)
	assert.Equal(t, "Booked Sailing.", out)
}

func TestWeatherReportOverride(t *testing.T) {
	r := MustNew(Weather(WithReport("windy")))

	out, err := r.Execute(context.Background(), "weather", "")
	require.NoError(t, err)
	assert.Equal(t, "windy", out)
}
