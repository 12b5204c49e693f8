package codec

import (
	"strconv"
)

// Wire representation of booleans
const (
	wireTrue  = "True"
	wireFalse = "False"
)

// registerBuiltins installs the mappings every registry starts with.
// The representations are human readable so values written by other
// clients of the backend (e.g. a plain SET 42) decode as expected.
func registerBuiltins(r *Registry) {
	Register(r,
		func(v string) (string, error) { return v, nil },
		func(s string) (string, error) { return s, nil },
	)
	Register(r,
		func(v int) (string, error) { return strconv.Itoa(v), nil },
		func(s string) (int, error) { return strconv.Atoi(s) },
	)
	Register(r,
		func(v int64) (string, error) { return strconv.FormatInt(v, 10), nil },
		func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
	)
	Register(r,
		func(v float64) (string, error) { return strconv.FormatFloat(v, 'g', -1, 64), nil },
		func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
	)
	Register(r,
		func(v []byte) (string, error) { return string(v), nil },
		func(s string) ([]byte, error) { return []byte(s), nil },
	)
	Register(r,
		func(v bool) (string, error) {
			if v {
				return wireTrue, nil
			}
			return wireFalse, nil
		},
		func(s string) (bool, error) { return s == wireTrue, nil },
	)
}
