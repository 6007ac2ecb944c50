package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/opd-ai/qbridge/transaction"
)

// optInt is an integer field that pages send either as a number or as a
// numeric string. Set reports whether the field was present and not null.
type optInt struct {
	Value int64
	Set   bool
}

func (o *optInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*o = optInt{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*o = optInt{}
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		*o = optInt{Value: v, Set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid integer %s", string(data))
	}
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("invalid integer %s", n)
	}
	*o = optInt{Value: v, Set: true}
	return nil
}

// int32 returns the value narrowed for transaction fields.
func (o optInt) int32(name string) (int32, error) {
	if o.Value < -1<<31 || o.Value > 1<<31-1 {
		return 0, fmt.Errorf("%s out of range: %d", name, o.Value)
	}
	return int32(o.Value), nil
}

// amount is a decimal coin amount sent as a number or a string.
type amount struct {
	Units int64
	Set   bool
}

func (a *amount) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*a = amount{}
		return nil
	}
	units, err := transaction.ParseJSONAmount(data)
	if err != nil {
		return err
	}
	*a = amount{Units: units, Set: true}
	return nil
}

// stringList accepts a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = stringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// firstNonEmpty returns the first non-empty argument.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
