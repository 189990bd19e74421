package subscription

import "time"

// addDuration maps each recognized DurationUnit to its date arithmetic.
// Minutes and hours are fixed-duration additions. Days, weeks, months and
// years go through time.AddDate, so month and year increments are
// calendar-correct and overflow normalizes forward: Jan 31 + 1 month lands
// on Mar 2 or Mar 3 depending on February's length.
var addDuration = map[DurationUnit]func(t time.Time, value int) time.Time{
	UnitMinutes: func(t time.Time, value int) time.Time {
		return t.Add(time.Duration(value) * time.Minute)
	},
	UnitHours: func(t time.Time, value int) time.Time {
		return t.Add(time.Duration(value) * time.Hour)
	},
	UnitDays: func(t time.Time, value int) time.Time {
		return t.AddDate(0, 0, value)
	},
	UnitWeeks: func(t time.Time, value int) time.Time {
		return t.AddDate(0, 0, 7*value)
	},
	UnitMonths: func(t time.Time, value int) time.Time {
		return t.AddDate(0, value, 0)
	},
	UnitYears: func(t time.Time, value int) time.Time {
		return t.AddDate(value, 0, 0)
	},
}

// AddDuration returns t plus value units of unit. An unrecognized unit is
// rejected rather than silently dropped.
func AddDuration(t time.Time, value int, unit DurationUnit) (time.Time, error) {
	fn, ok := addDuration[unit]
	if !ok {
		return time.Time{}, &ValidationError{Field: "durationUnit", Reason: "unrecognized unit " + string(unit)}
	}
	return fn(t, value), nil
}
