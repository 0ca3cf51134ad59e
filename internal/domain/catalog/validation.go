package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds free-text answers, in runes.
const MaxTextLength = 4000

// Normalize validates a raw answer against the field kind and returns its
// canonical form. Raw values arrive decoded from JSON, so numbers may be
// float64 or json.Number and lists may be []any.
func (f Field) Normalize(raw any) (Value, error) {
	switch f.Kind {
	case KindText:
		s, ok := raw.(string)
		if !ok {
			return Value{}, f.invalid("type", "expected text")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return Value{}, f.invalid("not_blank", "answer must not be blank")
		}
		if utf8.RuneCountInString(s) > MaxTextLength {
			return Value{}, f.invalid("max_length", fmt.Sprintf("answer exceeds %d characters", MaxTextLength))
		}
		return Value{Text: s}, nil

	case KindChoice:
		s, ok := raw.(string)
		if !ok {
			return Value{}, f.invalid("type", "expected a single option")
		}
		s = strings.TrimSpace(s)
		if _, ok := f.Option(s); !ok {
			return Value{}, f.invalid("one_of", fmt.Sprintf("must be one of %s", f.optionList()))
		}
		return Value{Choices: []string{s}}, nil

	case KindMultiChoice:
		items, ok := toStrings(raw)
		if !ok {
			return Value{}, f.invalid("type", "expected a list of options")
		}
		if len(items) == 0 {
			return Value{}, f.invalid("not_empty", "select at least one option")
		}
		seen := make(map[string]bool, len(items))
		out := make([]string, 0, len(items))
		for _, item := range items {
			item = strings.TrimSpace(item)
			if _, ok := f.Option(item); !ok {
				return Value{}, f.invalid("subset_of", fmt.Sprintf("every option must be one of %s", f.optionList()))
			}
			if seen[item] {
				return Value{}, f.invalid("distinct", fmt.Sprintf("option %q selected twice", item))
			}
			seen[item] = true
			out = append(out, item)
		}
		return Value{Choices: out}, nil

	case KindScale:
		n, ok := toInt(raw)
		if !ok {
			return Value{}, f.invalid("type", "expected a whole number")
		}
		if n < f.Min || n > f.Max {
			return Value{}, f.invalid("range", fmt.Sprintf("must be between %d and %d", f.Min, f.Max))
		}
		return Value{Scale: &n}, nil
	}
	return Value{}, f.invalid("kind", fmt.Sprintf("unsupported kind %q", f.Kind))
}

func (f Field) invalid(constraint, message string) error {
	return &ValueError{Field: f.Key, Constraint: constraint, Message: message}
}

func (f Field) optionList() string {
	values := make([]string, len(f.Options))
	for i, opt := range f.Options {
		values[i] = opt.Value
	}
	return strings.Join(values, ", ")
}

func toStrings(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
