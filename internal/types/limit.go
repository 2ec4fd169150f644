package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// unlimitedText is the serialized form of an unlimited Limit.
const unlimitedText = "unlimited"

// Limit is a quota ceiling: either a concrete count or unlimited.
// The zero value is Limited(0).
type Limit struct {
	n         int64
	unlimited bool
}

// Limited returns a Limit capped at n.
func Limited(n int64) Limit {
	return Limit{n: n}
}

// Unlimited returns a Limit with no ceiling.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// IsUnlimited reports whether the limit has no ceiling.
func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Value returns the ceiling and true, or 0 and false when unlimited.
func (l Limit) Value() (int64, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// Exceeded reports whether count has reached the ceiling. An unlimited
// limit is never exceeded.
func (l Limit) Exceeded(count int64) bool {
	if l.unlimited {
		return false
	}
	return count >= l.n
}

// String returns the decimal ceiling or "unlimited".
func (l Limit) String() string {
	if l.unlimited {
		return unlimitedText
	}
	return strconv.FormatInt(l.n, 10)
}

// MarshalJSON encodes a limited value as a JSON number and an unlimited
// value as the string "unlimited".
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return json.Marshal(unlimitedText)
	}
	return []byte(strconv.FormatInt(l.n, 10)), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string, or "unlimited".
func (l *Limit) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return l.UnmarshalText([]byte(s))
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("limit: invalid value %s", data)
	}
	*l = Limited(n)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (l Limit) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Limit) UnmarshalText(text []byte) error {
	s := string(text)
	if s == unlimitedText {
		*l = Unlimited()
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("limit: invalid value %q", s)
	}
	*l = Limited(n)
	return nil
}
