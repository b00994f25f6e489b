package clients

import (
	"bytes"
	"encoding/json"
)

// FlexString accepts identifiers the processor sends either as strings or numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Ptr returns nil for an empty value.
func (f FlexString) Ptr() *string {
	if f == "" {
		return nil
	}
	s := string(f)
	return &s
}
