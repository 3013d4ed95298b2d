package docengine

import (
	"bytes"
	"encoding/json"
	"reflect"
	"time"
)

// compareValues orders two arbitrary document leaf values. Numbers compare
// numerically regardless of concrete Go type (int/float64/json.Number all
// arrive as float64 once decoded, but callers may also construct documents
// with int literals directly); times compare chronologically; nested
// documents and arrays compare by their canonical JSON bytes; everything
// else falls back to comparing reflect type names, mirroring the
// permissive cross-type ordering a dynamically typed source exhibits.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}

	if an, aok := toFloat(a); aok {
		if bn, bok := toFloat(b); bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}

	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			switch {
			case as < bs:
				return -1
			case as > bs:
				return 1
			default:
				return 0
			}
		}
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case !ab && bb:
				return -1
			case ab && !bb:
				return 1
			default:
				return 0
			}
		}
	}

	if aj, aok := canonicalJSON(a); aok {
		if bj, bok := canonicalJSON(b); bok {
			return bytes.Compare(aj, bj)
		}
	}

	ta2, tb2 := reflect.TypeOf(a).String(), reflect.TypeOf(b).String()
	switch {
	case ta2 < tb2:
		return -1
	case ta2 > tb2:
		return 1
	default:
		return 0
	}
}

// canonicalJSON marshals nested documents and arrays to JSON so structural
// equality and ordering can be derived from the byte representation:
// encoding/json sorts map keys, so two Docs with the same contents always
// produce identical bytes regardless of Go map iteration order.
func canonicalJSON(v interface{}) ([]byte, bool) {
	switch v.(type) {
	case Doc, map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return b, true
	default:
		return nil, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// equalValues reports whether two leaf values are equal for the purposes of
// $eq matching and unique-index key comparison.
func equalValues(a, b interface{}) bool {
	return compareValues(a, b) == 0
}
