package units

import (
	"fmt"
	"strings"
)

// System identifies a measurement unit system. The integer values are the
// ones carried inside station packets (usUnits field).
type System int

const (
	// US is the imperial unit system.
	US System = 0x01
	// Metric is the metric system with km/h wind speeds and cm rain.
	Metric System = 0x10
	// MetricWX is the meteorological metric system (m/s, mm).
	MetricWX System = 0x11
)

// String returns the symbolic name of the system.
func (s System) String() string {
	switch s {
	case US:
		return "US"
	case Metric:
		return "METRIC"
	case MetricWX:
		return "METRICWX"
	default:
		return fmt.Sprintf("System(%d)", int(s))
	}
}

// SystemFromInt maps a packet unit-system value onto a System.
func SystemFromInt(value int) (System, error) {
	switch System(value) {
	case US, Metric, MetricWX:
		return System(value), nil
	default:
		return 0, fmt.Errorf("invalid unit system value: %d", value)
	}
}

// ParseSystem maps a symbolic configuration value onto a System.
func ParseSystem(name string) (System, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "METRICWX":
		return MetricWX, nil
	case "METRIC":
		return Metric, nil
	case "US":
		return US, nil
	default:
		return 0, fmt.Errorf("invalid unit system %q", name)
	}
}

// measurementGroups maps common station observation names onto unit groups.
var measurementGroups = map[string]string{
	"outTemp":            "group_temperature",
	"inTemp":             "group_temperature",
	"extraTemp":          "group_temperature",
	"dewpoint":           "group_temperature",
	"windchill":          "group_temperature",
	"heatindex":          "group_temperature",
	"appTemp":            "group_temperature",
	"soilTemp":           "group_temperature",
	"leafTemp":           "group_temperature",
	"barometer":          "group_pressure",
	"pressure":           "group_pressure",
	"altimeter":          "group_pressure",
	"windSpeed":          "group_speed",
	"windGust":           "group_speed",
	"windDir":            "group_direction",
	"windGustDir":        "group_direction",
	"rain":               "group_rain",
	"ET":                 "group_rain",
	"rainRate":           "group_rainrate",
	"outHumidity":        "group_percent",
	"inHumidity":         "group_percent",
	"extraHumid":         "group_percent",
	"soilMoist":          "group_moisture",
	"rxCheckPercent":     "group_percent",
	"UV":                 "group_uv",
	"radiation":          "group_radiation",
	"cloudbase":          "group_altitude",
	"visibility":         "group_distance",
	"supplyVoltage":      "group_volt",
	"referenceVoltage":   "group_volt",
	"heatingVoltage":     "group_volt",
	"consBatteryVoltage": "group_volt",
	"dateTime":           "group_time",
	"interval":           "group_interval",
}

// groupUnits maps a unit group to the concrete unit per system.
var groupUnits = map[string]map[System]string{
	"group_temperature": {US: "degree_F", Metric: "degree_C", MetricWX: "degree_C"},
	"group_pressure":    {US: "inHg", Metric: "mbar", MetricWX: "mbar"},
	"group_speed":       {US: "mile_per_hour", Metric: "km_per_hour", MetricWX: "meter_per_second"},
	"group_direction":   {US: "degree_compass", Metric: "degree_compass", MetricWX: "degree_compass"},
	"group_rain":        {US: "inch", Metric: "cm", MetricWX: "mm"},
	"group_rainrate":    {US: "inch_per_hour", Metric: "cm_per_hour", MetricWX: "mm_per_hour"},
	"group_percent":     {US: "percent", Metric: "percent", MetricWX: "percent"},
	"group_moisture":    {US: "centibar", Metric: "centibar", MetricWX: "centibar"},
	"group_uv":          {US: "uv_index", Metric: "uv_index", MetricWX: "uv_index"},
	"group_radiation":   {US: "watt_per_meter_squared", Metric: "watt_per_meter_squared", MetricWX: "watt_per_meter_squared"},
	"group_altitude":    {US: "foot", Metric: "meter", MetricWX: "meter"},
	"group_distance":    {US: "mile", Metric: "km", MetricWX: "km"},
	"group_volt":        {US: "volt", Metric: "volt", MetricWX: "volt"},
	"group_time":        {US: "unix_epoch", Metric: "unix_epoch", MetricWX: "unix_epoch"},
	"group_interval":    {US: "minute", Metric: "minute", MetricWX: "minute"},
}

// StandardUnit returns the unit and group a measurement is reported in under
// the given system. ok is false when the measurement is unknown.
func StandardUnit(system System, measurement string) (unit, group string, ok bool) {
	group, ok = measurementGroups[measurement]
	if !ok {
		return "", "", false
	}
	unit, ok = groupUnits[group][system]
	if !ok {
		return "", group, false
	}
	return unit, group, true
}
