package units

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/openwx/wxha/locale"
)

// timeValuedMeasurements report a timestamp rather than a physical quantity.
var timeValuedMeasurements = map[string]struct{}{
	"sunrise":    {},
	"sunset":     {},
	"stormStart": {},
}

// Metadata returns the display metadata for a measurement under a unit
// system, looked up by target unit in the resolved units table. Measurements
// without a known unit fall back to a guess: evapotranspiration aggregates
// (dayET, monthET, ...) share ET's unit, time-valued measurements share
// dateTime's. The result is a fresh map.
func Metadata(table locale.Document, measurement string, system System, logger zerolog.Logger) map[string]any {
	unit, _, ok := StandardUnit(system, measurement)
	if !ok {
		switch {
		case measurement == "usUnits":
			// Carries the unit system itself; nothing to look up.
		case strings.HasSuffix(measurement, "ET"):
			unit, _, ok = StandardUnit(system, "ET")
		default:
			if _, timed := timeValuedMeasurements[measurement]; timed {
				unit, _, ok = StandardUnit(system, "dateTime")
			} else {
				logger.Warn().
					Str("measurement", measurement).
					Str("unit_system", system.String()).
					Msg("no unit found for measurement")
			}
		}
		if ok && unit != "" {
			logger.Info().Str("unit", unit).Str("measurement", measurement).Msg("guessed unit for measurement")
		}
	}

	if raw, found := table[unit]; found {
		if meta, isMap := raw.(map[string]any); isMap {
			out := make(map[string]any, len(meta))
			for key, value := range meta {
				out[key] = value
			}
			return out
		}
	}

	// Default to the station's own unit name when the table has no entry.
	if unit == "" {
		return map[string]any{"unit_of_measurement": nil}
	}
	return map[string]any{"unit_of_measurement": unit}
}
