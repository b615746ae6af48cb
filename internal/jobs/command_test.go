package jobs_test

import (
	"errors"
	"testing"

	"kollektor/internal/config"
	"kollektor/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchSpec() config.KindSpec {
	return config.KindSpec{
		Name:    "search-enrichment",
		Command: []string{"python3", "main.py"},
		Options: []config.OptionSpec{
			{Name: "postal_prefix", Flag: "--plz-filter", Type: config.OptionString},
			{Name: "headless", Flag: "--headless", Type: config.OptionBool},
			{Name: "max_units", Flag: "--max-plz", Type: config.OptionInt},
			{Name: "search_provider", Flag: "--search-provider", Type: config.OptionEnum, Values: []string{"duckduckgo", "bing", "google"}},
			{Name: "confidence", Flag: "--confidence-filter", Type: config.OptionEnumList, Values: []string{"low", "medium", "high"}},
		},
	}
}

func TestBuildCommandBaseOnly(t *testing.T) {
	argv, err := jobs.BuildCommand(searchSpec(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "main.py"}, argv)
}

func TestBuildCommandDeclaredOrder(t *testing.T) {
	// Flags follow the declared option order, not the map iteration
	// order of the request body.
	argv, err := jobs.BuildCommand(searchSpec(), map[string]any{
		"search_provider": "bing",
		"headless":        true,
		"postal_prefix":   "44",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"python3", "main.py",
		"--plz-filter", "44",
		"--headless",
		"--search-provider", "bing",
	}, argv)
}

func TestBuildCommandOmitsFalsyValues(t *testing.T) {
	argv, err := jobs.BuildCommand(searchSpec(), map[string]any{
		"postal_prefix": "",
		"headless":      false,
		"max_units":     float64(0),
		"confidence":    []any{},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "main.py"}, argv)
}

func TestBuildCommandEnumListRepeatsFlag(t *testing.T) {
	argv, err := jobs.BuildCommand(searchSpec(), map[string]any{
		"confidence": []any{"medium", "high"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"python3", "main.py",
		"--confidence-filter", "medium",
		"--confidence-filter", "high",
	}, argv)
}

func TestBuildCommandIntFromJSONNumber(t *testing.T) {
	argv, err := jobs.BuildCommand(searchSpec(), map[string]any{
		"max_units": float64(25),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "main.py", "--max-plz", "25"}, argv)

	_, err = jobs.BuildCommand(searchSpec(), map[string]any{
		"max_units": 2.5,
	})
	var verr *jobs.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "max_units", verr.Field)
}

func TestBuildCommandRejectsUnknownParameter(t *testing.T) {
	_, err := jobs.BuildCommand(searchSpec(), map[string]any{
		"zz_later":      true,
		"aa_first":      true,
		"postal_prefix": "44",
	})
	var verr *jobs.ValidationError
	require.True(t, errors.As(err, &verr))
	// First unknown key in sorted order, so the message is stable.
	assert.Equal(t, "aa_first", verr.Field)
	assert.Contains(t, verr.Error(), "unrecognized")
}

func TestBuildCommandRejectsBadEnumValue(t *testing.T) {
	_, err := jobs.BuildCommand(searchSpec(), map[string]any{
		"search_provider": "altavista",
	})
	var verr *jobs.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "search_provider", verr.Field)

	_, err = jobs.BuildCommand(searchSpec(), map[string]any{
		"confidence": []any{"high", "certain"},
	})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "confidence", verr.Field)
}

func TestBuildCommandRejectsWrongTypes(t *testing.T) {
	cases := map[string]map[string]any{
		"postal_prefix": {"postal_prefix": 44.0},
		"headless":      {"headless": "yes"},
		"max_units":     {"max_units": "25"},
		"confidence":    {"confidence": "high"},
	}
	for field, params := range cases {
		_, err := jobs.BuildCommand(searchSpec(), params)
		var verr *jobs.ValidationError
		require.True(t, errors.As(err, &verr), "field %s", field)
		assert.Equal(t, field, verr.Field)
	}
}

func TestBuildCommandNilValueSkipped(t *testing.T) {
	argv, err := jobs.BuildCommand(searchSpec(), map[string]any{
		"postal_prefix": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "main.py"}, argv)
}
