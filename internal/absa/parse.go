package absa

import (
	"bytes"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"github.com/TobiSchelling/FeedbackLens/internal/llm"
)

const (
	termsKey    = "Aspect Terms"
	polarityKey = "Polarity"
)

// Shape is the form an aspect's value took in the model reply.
type Shape int

const (
	// ShapeNone is null or a value that carries no terms (numbers, booleans).
	ShapeNone Shape = iota
	// ShapeObject is {"Aspect Terms": ..., "Polarity": ...}.
	ShapeObject
	// ShapeList is a bare list of terms.
	ShapeList
	// ShapeScalar is a bare string term.
	ShapeScalar
)

// TermsKind is the form of the "Aspect Terms" payload inside an object.
type TermsKind int

const (
	TermsAbsent TermsKind = iota
	TermsNull
	TermsList
	TermsText
)

// Terms holds decoded terms.
type Terms struct {
	Kind TermsKind
	List []string
	Text string
}

// AspectValue is one aspect entry, validated at the parse boundary.
type AspectValue struct {
	Shape       Shape
	Terms       Terms
	Polarity    string
	HasPolarity bool
}

// Response is the typed form of a model reply.
type Response struct {
	Aspects map[string]AspectValue
	// Polarity is the optional top-level fallback used by list and scalar shapes.
	Polarity    string
	HasPolarity bool
}

// ParseResponse salvages and decodes a raw model reply. It returns false on
// irrecoverable input and never panics.
func ParseResponse(raw string) (*Response, bool) {
	cleaned, ok := llm.CleanJSON(raw)
	if !ok {
		log.Printf("Could not recover JSON from response: %q", truncate(raw, 300))
		return nil, false
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &top); err != nil {
		log.Printf("Failed to decode response object: %v", err)
		return nil, false
	}

	resp := &Response{Aspects: make(map[string]AspectValue, len(top))}
	for key, value := range top {
		if key == polarityKey {
			resp.Polarity, resp.HasPolarity = decodePolarity(value)
			continue
		}
		resp.Aspects[key] = decodeAspect(value)
	}
	return resp, true
}

// Lookup finds an aspect entry, falling back to a case-insensitive key match.
func (r *Response) Lookup(aspect string) (AspectValue, bool) {
	if r == nil {
		return AspectValue{}, false
	}
	if v, ok := r.Aspects[aspect]; ok {
		return v, true
	}
	for key, v := range r.Aspects {
		if strings.EqualFold(strings.TrimSpace(key), aspect) {
			return v, true
		}
	}
	return AspectValue{}, false
}

func decodeAspect(raw json.RawMessage) AspectValue {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return AspectValue{Shape: ShapeNone}
	}

	switch raw[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return AspectValue{Shape: ShapeNone}
		}
		v := AspectValue{Shape: ShapeObject}
		if termsRaw, ok := lookupKey(obj, termsKey); ok {
			v.Terms = decodeTerms(termsRaw)
		}
		if polRaw, ok := lookupKey(obj, polarityKey); ok {
			v.Polarity, v.HasPolarity = decodePolarity(polRaw)
		}
		return v
	case '[':
		return AspectValue{Shape: ShapeList, Terms: Terms{Kind: TermsList, List: decodeList(raw)}}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AspectValue{Shape: ShapeNone}
		}
		return AspectValue{Shape: ShapeScalar, Terms: Terms{Kind: TermsText, Text: s}}
	default:
		return AspectValue{Shape: ShapeNone}
	}
}

func decodeTerms(raw json.RawMessage) Terms {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Terms{Kind: TermsNull}
	}
	switch raw[0] {
	case '[':
		return Terms{Kind: TermsList, List: decodeList(raw)}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return Terms{Kind: TermsText, Text: s}
		}
		return Terms{Kind: TermsNull}
	default:
		// Numbers and booleans are stringified as-is.
		return Terms{Kind: TermsText, Text: string(raw)}
	}
}

// decodeList keeps string elements, stringifies numbers and drops nulls.
func decodeList(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || bytes.Equal(item, []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		if f, err := strconv.ParseFloat(string(item), 64); err == nil {
			out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	return out
}

func decodePolarity(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func lookupKey(obj map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return v, true
		}
	}
	return nil, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
