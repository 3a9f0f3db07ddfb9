package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Params are the query parameters of a read. Nil values and empty strings are
// treated as absent so that an unset filter and an omitted one share a key.
type Params map[string]any

// Values renders p as url.Values. Slices become repeated values.
func (p Params) Values() url.Values {
	v := url.Values{}
	for k, raw := range p {
		switch x := raw.(type) {
		case nil:
		case []string:
			s := append([]string(nil), x...)
			sort.Strings(s)
			for _, e := range s {
				v.Add(k, e)
			}
		default:
			if s := formatParam(x); s != "" {
				v.Set(k, s)
			}
		}
	}
	return v
}

// Encode is the canonical query string: keys sorted, values escaped.
func (p Params) Encode() string {
	return p.Values().Encode()
}

func formatParam(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Key derives the cache key for endpoint and params. Two param maps holding
// the same pairs always produce the same key.
func Key(endpoint string, params Params) string {
	q := params.Encode()
	if q == "" {
		return endpoint
	}
	return endpoint + "?" + q
}
