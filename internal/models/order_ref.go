package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// OrderRef is the caller's order identifier. It may arrive as a JSON string
// or a JSON integer and is written back in the same form.
type OrderRef struct {
	value   string
	numeric bool
}

func StringOrderRef(s string) OrderRef {
	return OrderRef{value: s}
}

func IntOrderRef(n int64) OrderRef {
	return OrderRef{value: strconv.FormatInt(n, 10), numeric: true}
}

func (r OrderRef) String() string { return r.value }

func (r OrderRef) IsZero() bool { return r.value == "" }

func (r OrderRef) IsNumeric() bool { return r.numeric }

func (r OrderRef) MarshalJSON() ([]byte, error) {
	if r.numeric {
		return []byte(r.value), nil
	}
	return json.Marshal(r.value)
}

func (r *OrderRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = OrderRef{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = StringOrderRef(s)
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("order_id must be a string or an integer, got %s", data)
	}
	*r = IntOrderRef(n)
	return nil
}
