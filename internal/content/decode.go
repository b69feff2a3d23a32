package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Decode turns stored or caller-supplied content into an Envelope.
//
// raw may be a string or byte slice holding JSON (or plain text), a parsed
// JSON object, any JSON-serialisable Go value, or an Envelope, which is
// returned as is. Decode never fails: anything that matches no known shape
// becomes a Text carrying the original content. Questions are read as found;
// run Validate on the result before handing it to a player.
func Decode(raw any) Envelope {
	switch v := raw.(type) {
	case nil:
		return Text{}
	case Envelope:
		return deref(v)
	case string:
		return decodeString(v)
	case []byte:
		return decodeString(string(v))
	case json.RawMessage:
		return decodeString(string(v))
	}

	data, err := marshalJSON(raw)
	if err != nil {
		// Printing the value could recurse forever on a cyclic map or slice.
		return Text{Body: fmt.Sprintf("%T: %v", raw, err)}
	}
	obj, ok := parseObject(data)
	if !ok {
		return Text{Body: data}
	}
	return decodeObject(obj, data)
}

// decodeString replaces invalid UTF-8 up front, as the JSON path does, so
// that a Text body survives an encode and decode cycle.
func decodeString(s string) Envelope {
	s = strings.ToValidUTF8(s, "\uFFFD")
	obj, ok := parseObject(s)
	if !ok {
		return Text{Body: s}
	}
	return decodeObject(obj, s)
}

// decodeObject runs the recognizers in order. original is the text kept in
// the Text fallback when nothing matches.
func decodeObject(obj map[string]any, original string) Envelope {
	for _, r := range recognizers {
		if env, ok := r.match(obj); ok {
			return env
		}
	}
	return Text{Body: original}
}

// parseObject parses s as a single JSON object. Numbers are kept as
// json.Number so that indexes and stringified values stay exact.
func parseObject(s string) (map[string]any, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// marshalJSON encodes v without HTML escaping so stored content stays
// readable by humans and by consumers that compare strings.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
