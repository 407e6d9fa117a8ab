package transform

import (
	"fmt"
	"math"
	"time"

	"github.com/openwx/wxha/locale"
	"github.com/openwx/wxha/units"
)

// Builtins returns the static transform table. The enum-backed transforms
// close over the enumeration table resolved for the active language, so their
// labels localize together with the rest of the configuration.
func Builtins(enums locale.EnumTable) map[string]Func {
	return map[string]Func{
		"degrees_to_cardinal":        degreesToCardinal(enums),
		"beaufort_scale_map":         beaufortScale(enums),
		"localtime_to_utc_timestamp": localtimeToUTC,
		"unit_system_to_string":      unitSystemToString,
	}
}

// degreesToCardinal converts a wind direction in degrees to one of the 16
// cardinal direction labels. Each direction covers 22.5 degrees; adding
// 11.25 centers the ranges.
func degreesToCardinal(enums locale.EnumTable) Func {
	return func(value any, _ Context) (any, error) {
		degrees, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		index := int(math.Floor((degrees+11.25)/22.5)) % 16
		if index < 0 {
			index += 16
		}
		directions, ok := enums["cardinal_directions"]
		if !ok {
			return nil, fmt.Errorf("cardinal_directions enumeration not available")
		}
		label, ok := directions.Value(index)
		if !ok {
			return nil, fmt.Errorf("cardinal_directions enumeration missing key %d", index)
		}
		return label, nil
	}
}

// beaufortScale maps a Beaufort number onto its descriptive label, falling
// back to a literal rendering for numbers outside the scale.
func beaufortScale(enums locale.EnumTable) Func {
	return func(value any, _ Context) (any, error) {
		number, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		n := int(number)
		if scale, ok := enums["beaufort_scale"]; ok {
			if label, found := scale.Value(n); found {
				return label, nil
			}
		}
		return fmt.Sprintf("%d - Unknown", n), nil
	}
}

// localtimeToUTC reinterprets an epoch whose wall-clock fields were produced
// in the station's time zone, returning the corrected UTC epoch.
func localtimeToUTC(value any, ctx Context) (any, error) {
	seconds, err := toFloat(value)
	if err != nil {
		return nil, err
	}
	location := ctx.Location
	if location == nil {
		location = time.UTC
	}
	wall := time.Unix(int64(seconds), 0).UTC()
	corrected := time.Date(
		wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(),
		location,
	)
	return corrected.Unix(), nil
}

// unitSystemToString renders the packet's unit-system value symbolically.
func unitSystemToString(value any, _ Context) (any, error) {
	number, err := toFloat(value)
	if err != nil {
		return nil, err
	}
	system, err := units.SystemFromInt(int(number))
	if err != nil {
		return nil, err
	}
	return system.String(), nil
}
