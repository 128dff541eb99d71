package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// isoLayout matches what browsers produce with Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Timestamp accepts an ISO-8601 string or a number of epoch milliseconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q is not ISO-8601", s)
		}
		return t.set(parsed)
	}
	var ms json.Number
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("timestamp must be a string or a number")
	}
	n, err := ms.Int64()
	if err != nil {
		f, ferr := ms.Float64()
		if ferr != nil {
			return fmt.Errorf("timestamp %s is not epoch milliseconds", ms)
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return fmt.Errorf("timestamp %s is out of range", ms)
		}
		n = int64(f)
	}
	return t.set(time.UnixMilli(n))
}

// set keeps only times that render as a four digit year.
func (t *Timestamp) set(v time.Time) error {
	if y := v.UTC().Year(); y < 0 || y > 9999 {
		return fmt.Errorf("timestamp year %d is out of range", y)
	}
	t.Time = v
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatTimestamp(t.Time))
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
