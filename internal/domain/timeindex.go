package domain

import "time"

// timeDefineLayouts are tried in order. JMA publishes RFC 3339 with a +09:00
// offset; some mirrors drop the offset, the seconds or the time of day.
var timeDefineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

func parseTimeDefine(s string) (time.Time, bool) {
	for _, layout := range timeDefineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveDateIndices returns, in ascending order, every index of timeDefines
// whose calendar date equals target. The date is read in the timestamp's own
// offset and the time of day is ignored. No match yields an empty slice and a
// nil error; callers decide whether that is fatal. An unparseable timestamp is
// reported as ErrSchema.
func ResolveDateIndices(timeDefines []string, target Date) ([]int, error) {
	indices := []int{}
	for i, raw := range timeDefines {
		t, ok := parseTimeDefine(raw)
		if !ok {
			return nil, schemaErrorf("timeDefines[%d]: unparseable timestamp %q", i, raw)
		}
		if DateOf(t) == target {
			indices = append(indices, i)
		}
	}
	return indices, nil
}
