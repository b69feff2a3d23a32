// Package content decodes, repairs and encodes activity content.
//
// Activity content has been stored over the years as plain text, as a single
// legacy question, as a structured QCM, as a free-form Q&A or as a video
// reference, sometimes with a JSON document nested as a string inside another
// JSON document. Decode turns any of those shapes into one typed Envelope,
// Validate repairs questions so that forms and quiz players always receive a
// playable structure, and Encode writes the single canonical string shape.
//
// Repairing instead of rejecting is deliberate: rows written before this
// package existed must keep loading. Do not turn Validate into a strict
// validator that fails on historical content. The only error the package
// returns is *EncodingError, raised when a caller hands Encode a value that
// cannot be serialised at all.
package content

import "strings"

// Kind is the discriminator stored in the "type" field of encoded content.
type Kind string

const (
	KindText           Kind = "texte"
	KindVideo          Kind = "video"
	KindQcm            Kind = "qcm"
	KindQuestionAnswer Kind = "question_reponse"
)

// SchemaVersion is written into every canonical encoding. A "texte" document
// carrying it holds an opaque body that must not be parsed again.
const SchemaVersion = 2

func (k Kind) String() string {
	return string(k)
}

// ParseKind maps a stored tag to a Kind. Tags are trimmed and compared
// case-insensitively; "text" and "question_answer" are accepted aliases.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "texte", "text":
		return KindText, true
	case "video":
		return KindVideo, true
	case "qcm":
		return KindQcm, true
	case "question_reponse", "question_answer":
		return KindQuestionAnswer, true
	default:
		return "", false
	}
}

// Envelope is the typed form of one activity's content. The concrete types
// are Text, Video, Qcm and QuestionAnswer; switch on them to render content.
type Envelope interface {
	Kind() Kind
	isEnvelope()
}

// Text is plain activity text. Body holds the original content verbatim when
// no structure could be recovered from it.
type Text struct {
	Body string
}

// Video references an external video.
type Video struct {
	Link        string
	Description string
}

// Qcm is a multiple-choice quiz.
type Qcm struct {
	Questions []Question
}

// QuestionAnswer is a list of open questions.
type QuestionAnswer struct {
	Questions []FreeQuestion
}

// Question is one multiple-choice question. CorrectIndex points into Options.
type Question struct {
	Text         string
	Options      []string
	CorrectIndex int
}

// FreeQuestion is one open question.
type FreeQuestion struct {
	Text string
}

func (Text) Kind() Kind           { return KindText }
func (Video) Kind() Kind          { return KindVideo }
func (Qcm) Kind() Kind            { return KindQcm }
func (QuestionAnswer) Kind() Kind { return KindQuestionAnswer }

func (Text) isEnvelope()           {}
func (Video) isEnvelope()          {}
func (Qcm) isEnvelope()            {}
func (QuestionAnswer) isEnvelope() {}

// deref turns pointer envelopes into values so type switches only deal with
// the four value types. A nil pointer becomes an empty Text.
func deref(e Envelope) Envelope {
	switch v := e.(type) {
	case *Text:
		if v == nil {
			return Text{}
		}
		return *v
	case *Video:
		if v == nil {
			return Text{}
		}
		return *v
	case *Qcm:
		if v == nil {
			return Text{}
		}
		return *v
	case *QuestionAnswer:
		if v == nil {
			return Text{}
		}
		return *v
	default:
		return e
	}
}
