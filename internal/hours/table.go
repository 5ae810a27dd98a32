package hours

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseTable builds a Table keyed by full weekday names, case-insensitive
func ParseTable(days map[string]Window) (Table, error) {
	table := make(Table, len(days))
	for name, w := range days {
		day, ok := weekdayByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		if !w.Closed {
			if _, err := parseClock(w.Open); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if _, err := parseClock(w.Close); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		table[day] = w
	}
	return table, nil
}

// MarshalJSON encodes the table with lowercase weekday names as keys
func (t Table) MarshalJSON() ([]byte, error) {
	out := make(map[string]Window, len(t))
	for day, w := range t {
		out[strings.ToLower(day.String())] = w
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes weekday-name keys
func (t *Table) UnmarshalJSON(data []byte) error {
	var days map[string]Window
	if err := json.Unmarshal(data, &days); err != nil {
		return err
	}
	parsed, err := ParseTable(days)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan implements sql.Scanner for JSON columns
func (t *Table) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		return t.UnmarshalJSON(v)
	case string:
		return t.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into hours.Table", src)
	}
}

// Value implements driver.Valuer
func (t Table) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	b, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
