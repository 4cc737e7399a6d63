package catalog

import (
	"context"
	"fmt"
)

// Excursion describes a bookable excursion and the weather it suits.
type Excursion struct {
	Name           string   `json:"name"`
	IdealInWeather []string `json:"ideal_in_weather"`
}

// defaultExcursions is the built-in excursion inventory.
var defaultExcursions = []Excursion{
	{Name: "Sailing", IdealInWeather: []string{"windy"}},
	{Name: "Diving", IdealInWeather: []string{"sunny"}},
	{Name: "Playing Dota", IdealInWeather: []string{"rainy"}},
}

// AvailableExcursions returns an action listing the excursions on offer
// together with the weather each one suits.
func AvailableExcursions() *FunctionAction {
	return NewFunctionAction(
		"available_excursions",
		"List the excursions that can be booked, with the weather each is ideal in.",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return defaultExcursions, nil
		},
	)
}

// WeatherOptions configure the weather action.
type WeatherOptions struct {
	// Report is the fixed forecast the action returns. Tests override it to
	// exercise different excursion recommendations.
	Report string
}

// WithReport overrides the forecast returned by the weather action.
func WithReport(report string) func(o *WeatherOptions) {
	return func(o *WeatherOptions) { o.Report = report }
}

// Weather returns an action reporting the current weather. The forecast is
// fixed ("sunny" unless overridden) so conversations stay deterministic.
func Weather(optFns ...func(o *WeatherOptions)) *FunctionAction {
	opts := WeatherOptions{Report: "sunny"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return NewFunctionAction(
		"weather",
		"Get the current weather at the user's location.",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return opts.Report, nil
		},
	)
}

type bookExcursionArgs struct {
	Excursion string `json:"excursion" description:"Name of the excursion to book"`
}

// BookExcursion returns the action that books an excursion on the user's
// behalf. Booking spends the user's money, so it requires approval before
// execution.
func BookExcursion() *FunctionAction {
	return NewFunctionActionFromStruct(
		"book_excursion",
		"Book the given excursion for the user.",
		bookExcursionArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			excursion, _ := args["excursion"].(string)
			if excursion == "" {
				return nil, NewActionError("book_excursion", "excursion must not be empty", "VALIDATION_ERROR")
			}
			return fmt.Sprintf("Booked %s.", excursion), nil
		},
		func(o *FunctionOptions) { o.RequiresApproval = true },
	)
}

// Defaults builds a registry with the built-in excursion actions. It is the
// registry used when no custom actions are configured.
func Defaults() *Registry {
	return MustNew(AvailableExcursions(), Weather(), BookExcursion())
}
