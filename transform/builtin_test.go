package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openwx/wxha/locale"
)

func builtinEnums(t *testing.T) locale.EnumTable {
	t.Helper()
	doc := locale.Document{
		"cardinal_directions": map[string]any{
			"0": "N", "1": "NNE", "2": "NE", "3": "ENE",
			"4": "E", "5": "ESE", "6": "SE", "7": "SSE",
			"8": "S", "9": "SSW", "10": "SW", "11": "WSW",
			"12": "W", "13": "WNW", "14": "NW", "15": "NNW",
		},
		"beaufort_scale": map[string]any{
			"0": "0 - Calm",
			"1": "1 - Light air",
			"6": "6 - Strong breeze",
		},
	}
	return locale.ParseEnumTable(doc, func(name string, err error) {
		t.Fatalf("unexpected warning for %s: %v", name, err)
	})
}

func TestDegreesToCardinal(t *testing.T) {
	builtins := Builtins(builtinEnums(t))
	fn := builtins["degrees_to_cardinal"]
	require.NotNil(t, fn)

	cases := []struct {
		degrees float64
		want    string
	}{
		{0, "N"},
		{10, "N"},
		{11.25, "NNE"},
		{22.5, "NNE"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{350, "N"},
		{359.9, "N"},
		{-10, "N"},
	}
	for _, tc := range cases {
		got, err := fn(tc.degrees, Context{})
		require.NoError(t, err, "degrees %v", tc.degrees)
		require.Equal(t, tc.want, got, "degrees %v", tc.degrees)
	}
}

func TestDegreesToCardinalRejectsNonNumeric(t *testing.T) {
	fn := Builtins(builtinEnums(t))["degrees_to_cardinal"]

	_, err := fn("north", Context{})
	require.Error(t, err)
}

func TestDegreesToCardinalMissingEnum(t *testing.T) {
	fn := Builtins(locale.EnumTable{})["degrees_to_cardinal"]

	_, err := fn(90.0, Context{})
	require.Error(t, err)
}

func TestBeaufortScaleMap(t *testing.T) {
	fn := Builtins(builtinEnums(t))["beaufort_scale_map"]

	got, err := fn(6, Context{})
	require.NoError(t, err)
	require.Equal(t, "6 - Strong breeze", got)

	got, err = fn(0.4, Context{})
	require.NoError(t, err)
	require.Equal(t, "0 - Calm", got)
}

func TestBeaufortScaleMapUnknownNumber(t *testing.T) {
	fn := Builtins(builtinEnums(t))["beaufort_scale_map"]

	got, err := fn(13, Context{})
	require.NoError(t, err)
	require.Equal(t, "13 - Unknown", got)
}

func TestLocaltimeToUTCTimestamp(t *testing.T) {
	location, err := time.LoadLocation("Europe/Prague")
	require.NoError(t, err)

	fn := Builtins(builtinEnums(t))["localtime_to_utc_timestamp"]

	// The station reports an epoch whose UTC rendering shows the local
	// wall-clock time; the transform re-anchors it in the station's zone.
	reported := time.Date(2026, time.July, 1, 5, 12, 30, 0, time.UTC).Unix()
	want := time.Date(2026, time.July, 1, 5, 12, 30, 0, location).Unix()

	got, err := fn(reported, Context{Location: location})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLocaltimeToUTCTimestampDefaultsToUTC(t *testing.T) {
	fn := Builtins(builtinEnums(t))["localtime_to_utc_timestamp"]

	reported := int64(1_700_000_000)
	got, err := fn(reported, Context{})
	require.NoError(t, err)
	require.Equal(t, reported, got)
}

func TestUnitSystemToString(t *testing.T) {
	fn := Builtins(builtinEnums(t))["unit_system_to_string"]

	for value, want := range map[int]string{
		0x01: "US",
		0x10: "METRIC",
		0x11: "METRICWX",
	} {
		got, err := fn(value, Context{})
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := fn(99, Context{})
	require.Error(t, err)
}
