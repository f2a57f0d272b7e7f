package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MarshalJSON renders the inventory as an object keyed by denomination,
// preserving canonical order: {"2000":0,"500":3,...}.
func (inv Inventory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range inv {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(c.Value)))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(c.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form back, keeping key order.
func (inv *Inventory) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*inv = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("inventory: expected object")
	}
	out := Inventory{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		value, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("inventory: bad denomination %q", key)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("inventory: count for %s: %w", key, err)
		}
		out = append(out, DenominationCount{Value: value, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*inv = out
	return nil
}
