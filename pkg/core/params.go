package core

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
)

// Params is a loose parameter bag used at the boundary between typed
// request structs and the signing/transport layers. After validation the
// auth manager and transport only ever see the flattened string form.
type Params map[string]any

// Set stores a value and returns the map for chaining.
func (p Params) Set(key string, value any) Params {
	p[key] = value
	return p
}

// Merge copies all entries from other into p, overwriting on conflict.
func (p Params) Merge(other Params) Params {
	maps.Copy(p, other)
	return p
}

// Clone returns a shallow copy of the parameter map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// StringMap flattens the parameter bag to strings using the canonical
// coercion rules shared with request signing. Nil values and empty
// strings are dropped.
func (p Params) StringMap() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		s, ok := StringifyValue(v)
		if !ok {
			continue
		}
		out[k] = s
	}
	return out
}

// SortedKeys returns the parameter names in lexicographic order, with
// nil and empty-string values excluded. This ordering is what both the
// query serializer and the signers iterate over, so signatures always
// match the wire.
func (p Params) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if _, ok := StringifyValue(v); !ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StringifyValue converts a scalar parameter value to its canonical
// string form. The second return is false when the value must be
// dropped (nil or empty string). Non-scalar values fall back to fmt
// formatting; the web3 signer handles nesting before reaching here.
func StringifyValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		if val == "" {
			return "", false
		}
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}
