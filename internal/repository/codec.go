// Package repository implements the domain repositories on top of the
// generic record store, mapping domain structs to and from schemaless
// documents. Optional fields are written as explicit null markers on full
// updates so the store clears them; the store strips nulls on read, so an
// absent field and a cleared field are indistinguishable, as the data model
// requires.
package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/boutiq/internal/store"
)

func docString(doc store.Document, key string) string {
	v, _ := doc[key].(string)
	return v
}

func docBool(doc store.Document, key string) bool {
	v, _ := doc[key].(bool)
	return v
}

func docInt(doc store.Document, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func docDecimal(doc store.Document, key string) decimal.Decimal {
	switch v := doc[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func docTimePtr(doc store.Document, key string) *time.Time {
	s, ok := doc[key].(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func docObject(doc store.Document, key string) store.Document {
	v, _ := doc[key].(map[string]any)
	return v
}

func docStrings(doc store.Document, key string) []string {
	raw, ok := doc[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// timeMarker renders an optional time as a document value: RFC3339 when
// present, the null marker otherwise.
func timeMarker(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// decimalMarker renders an optional positive decimal as a JSON number, or
// the null marker when zero.
func decimalMarker(d decimal.Decimal) any {
	if d.IsZero() {
		return nil
	}
	return d.InexactFloat64()
}

// stringsMarker renders a string slice, or the null marker when empty.
func stringsMarker(ids []string) any {
	if len(ids) == 0 {
		return nil
	}
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
