package rules

import "time"

// dateLayouts are the supported input format families, most specific
// first so fractional-second timestamps are not truncated by a shorter
// layout. The layout detected on parse is reused for output: the output
// format class always equals the input format class.
var dateLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// shiftDate parses s against the supported layouts, adds offsetMs
// milliseconds, and re-serializes with the detected layout. The second
// return value is false when no layout matched; the input is then
// returned unchanged.
func shiftDate(s string, offsetMs int64) (string, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		shifted := t.Add(time.Duration(offsetMs) * time.Millisecond).UTC()
		return shifted.Format(layout), true
	}
	return s, false
}
