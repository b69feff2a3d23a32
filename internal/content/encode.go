package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EncodingError reports content that cannot be serialised. It signals a
// caller bug (a function, a channel, a cyclic value...), never a problem with
// legacy data.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("content %s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

var errNilEnvelope = errors.New("nil envelope")

// Encode validates e and returns its canonical JSON encoding, the only shape
// new writes should store.
func Encode(e Envelope) (string, error) {
	if e == nil {
		return "", &EncodingError{Op: "encode", Err: errNilEnvelope}
	}
	s, err := marshalJSON(Validate(e))
	if err != nil {
		return "", &EncodingError{Op: "encode", Err: err}
	}
	return s, nil
}

// EncodeValue encodes a raw caller value that has not been decoded yet. The
// value must be JSON-serialisable; it is then decoded, validated and encoded.
func EncodeValue(raw any) (string, error) {
	if err := CheckValue(raw); err != nil {
		return "", err
	}
	return Encode(Decode(raw))
}

// CheckValue reports, as an *EncodingError, a raw value that cannot be
// serialised. Decode accepts such values but can only keep a description
// of them.
func CheckValue(raw any) error {
	switch raw.(type) {
	case nil, string, []byte, json.RawMessage, Envelope:
		return nil
	}
	if _, err := json.Marshal(raw); err != nil {
		return &EncodingError{Op: "encode value", Err: err}
	}
	return nil
}

type wireText struct {
	Type          Kind   `json:"type"`
	Contenu       string `json:"contenu"`
	SchemaVersion int    `json:"schema_version"`
}

type wireVideo struct {
	Type          Kind   `json:"type"`
	Lien          string `json:"lien"`
	Description   string `json:"description,omitempty"`
	SchemaVersion int    `json:"schema_version"`
}

type wireQuestion struct {
	Texte           string   `json:"texte"`
	Options         []string `json:"options"`
	ReponseCorrecte int      `json:"reponse_correcte"`
}

type wireQcm struct {
	Type          Kind           `json:"type"`
	Questions     []wireQuestion `json:"questions"`
	SchemaVersion int            `json:"schema_version"`
}

type wireFreeQuestion struct {
	Texte string `json:"texte"`
}

type wireQuestionAnswer struct {
	Type          Kind               `json:"type"`
	Questions     []wireFreeQuestion `json:"questions"`
	SchemaVersion int                `json:"schema_version"`
}

// MarshalJSON writes the canonical shape, so envelopes can be embedded in
// API responses as they are.
func (t Text) MarshalJSON() ([]byte, error) {
	return marshalWire(wireText{Type: KindText, Contenu: t.Body, SchemaVersion: SchemaVersion})
}

func (v Video) MarshalJSON() ([]byte, error) {
	return marshalWire(wireVideo{
		Type:          KindVideo,
		Lien:          v.Link,
		Description:   v.Description,
		SchemaVersion: SchemaVersion,
	})
}

func (q Qcm) MarshalJSON() ([]byte, error) {
	questions := make([]wireQuestion, 0, len(q.Questions))
	for _, item := range q.Questions {
		options := item.Options
		if options == nil {
			options = []string{}
		}
		questions = append(questions, wireQuestion{
			Texte:           item.Text,
			Options:         options,
			ReponseCorrecte: item.CorrectIndex,
		})
	}
	return marshalWire(wireQcm{Type: KindQcm, Questions: questions, SchemaVersion: SchemaVersion})
}

func (q QuestionAnswer) MarshalJSON() ([]byte, error) {
	questions := make([]wireFreeQuestion, 0, len(q.Questions))
	for _, item := range q.Questions {
		questions = append(questions, wireFreeQuestion{Texte: item.Text})
	}
	return marshalWire(wireQuestionAnswer{
		Type:          KindQuestionAnswer,
		Questions:     questions,
		SchemaVersion: SchemaVersion,
	})
}

func marshalWire(v any) ([]byte, error) {
	s, err := marshalJSON(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
