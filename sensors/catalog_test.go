package sensors

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/openwx/wxha/locale"
	"github.com/openwx/wxha/transform"
)

func catalogFixture(t *testing.T) *Catalog {
	t.Helper()
	records := locale.Document{
		"outTemp": map[string]any{
			"metadata": map[string]any{
				"name": "Outdoor Temperature",
				"icon": "mdi:thermometer",
			},
		},
		"extraTemp": map[string]any{
			"metadata": map[string]any{
				"name": "Extra Temperature",
			},
		},
		"windCardinal": map[string]any{
			"source":         "windDir",
			"convert_lambda": "degrees_to_cardinal",
			"metadata": map[string]any{
				"name": "Wind Cardinal Direction",
			},
		},
		"beaufort": map[string]any{
			"source":         "windSpeed",
			"convert_lambda": "missing_transform",
			"metadata": map[string]any{
				"name": "Beaufort Scale",
			},
		},
		"extraAlarm": map[string]any{
			"integration": "binary_sensor",
			"metadata": map[string]any{
				"name": "Extra Alarm",
			},
		},
		"outHumidity": map[string]any{
			"metadata": map[string]any{
				"name": "Outdoor Humidity",
			},
		},
	}
	registry := transform.NewRegistry(map[string]transform.Func{
		"degrees_to_cardinal": func(value any, _ transform.Context) (any, error) {
			return "N", nil
		},
	})
	return NewCatalog(records, registry, zerolog.Nop())
}

func TestLookupExactRecord(t *testing.T) {
	catalog := catalogFixture(t)

	record := catalog.Lookup("outTemp")
	metadata := record["metadata"].(map[string]any)
	require.Equal(t, "Outdoor Temperature", metadata["name"])
	require.Equal(t, "mdi:thermometer", metadata["icon"])
}

func TestLookupReturnsFreshMaps(t *testing.T) {
	catalog := catalogFixture(t)

	first := catalog.Lookup("outTemp")
	first["metadata"].(map[string]any)["name"] = "Mutated"

	second := catalog.Lookup("outTemp")
	require.Equal(t, "Outdoor Temperature", second["metadata"].(map[string]any)["name"])
}

func TestLookupNumberedInstanceInheritsBase(t *testing.T) {
	catalog := catalogFixture(t)

	record := catalog.Lookup("extraTemp3")
	require.Equal(t, "Extra Temperature 3", record["metadata"].(map[string]any)["name"])
}

func TestLookupGuessesBySubstring(t *testing.T) {
	catalog := catalogFixture(t)

	record := catalog.Lookup("soilHumidity2")
	require.Equal(t, "binary_sensor", catalog.Lookup("doorAlarm")["integration"])
	require.Equal(t, "Soil Humidity 2", record["metadata"].(map[string]any)["name"])
}

func TestLookupUnknownKeyGetsFriendlyName(t *testing.T) {
	catalog := catalogFixture(t)

	cases := map[string]string{
		"leafWetness":  "Leaf Wetness",
		"txBatteryLow": "Transmit Battery Low",
		"rxSignal":     "Receive Signal",
		"inDampness":   "Indoor Dampness",
	}
	for key, want := range cases {
		record := catalog.Lookup(key)
		require.Equal(t, want, record["metadata"].(map[string]any)["name"], key)
	}
}

func TestConverterBinding(t *testing.T) {
	catalog := catalogFixture(t)

	fn, ok := catalog.Converter("windCardinal")
	require.True(t, ok)
	got, err := fn(90, transform.Context{})
	require.NoError(t, err)
	require.Equal(t, "N", got)

	// beaufort names a transform the registry does not know; the record
	// survives without a conversion.
	_, ok = catalog.Converter("beaufort")
	require.False(t, ok)
	require.Equal(t, "Beaufort Scale", catalog.Lookup("beaufort")["metadata"].(map[string]any)["name"])

	_, ok = catalog.Converter("outTemp")
	require.False(t, ok)
}

func TestDerivedFrom(t *testing.T) {
	catalog := catalogFixture(t)

	require.Equal(t, []string{"windCardinal"}, catalog.DerivedFrom("windDir"))
	require.Equal(t, []string{"beaufort"}, catalog.DerivedFrom("windSpeed"))
	require.Empty(t, catalog.DerivedFrom("rain"))
}

func TestNamesSorted(t *testing.T) {
	catalog := catalogFixture(t)

	names := catalog.Names()
	require.Contains(t, names, "outTemp")
	for i := 1; i < len(names); i++ {
		require.Less(t, names[i-1], names[i])
	}
}
