package content

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// PlaceholderQuestion replaces blank question text.
	PlaceholderQuestion = "Question sans titre"

	minOptions = 2
)

// PlaceholderOption returns the label used to pad the option at 0-based
// position i.
func PlaceholderOption(i int) string {
	return fmt.Sprintf("Option %d", i+1)
}

// Validate returns e with every question repaired: non-blank text, at least
// two options and a correct index inside the option list. Text and Video are
// returned unchanged. Validate is idempotent and never mutates e.
func Validate(e Envelope) Envelope {
	out, _ := Repair(e)
	return out
}

// Repair is Validate that also reports, in order, each repair it applied.
// A nil slice means e was already valid.
func Repair(e Envelope) (Envelope, []string) {
	switch v := deref(e).(type) {
	case nil:
		return Text{}, []string{"missing content replaced with empty text"}
	case Qcm:
		return repairQcm(v)
	case QuestionAnswer:
		return repairQuestionAnswer(v)
	default:
		return v, nil
	}
}

func repairQcm(in Qcm) (Envelope, []string) {
	var notes []string
	if len(in.Questions) == 0 {
		notes = append(notes, "empty question list: placeholder question added")
		return Qcm{Questions: []Question{placeholderQuestion()}}, notes
	}

	out := make([]Question, 0, len(in.Questions))
	for i, q := range in.Questions {
		fixed, qNotes := repairQuestion(q)
		for _, n := range qNotes {
			notes = append(notes, fmt.Sprintf("question %d: %s", i+1, n))
		}
		out = append(out, fixed)
	}
	return Qcm{Questions: out}, notes
}

func repairQuestion(q Question) (Question, []string) {
	var notes []string

	text, changed := repairText(q.Text)
	if changed != "" {
		notes = append(notes, changed)
	}

	options := make([]string, 0, max(len(q.Options), minOptions))
	normalized := false
	for _, opt := range q.Options {
		n := norm.NFC.String(opt)
		if n != opt {
			normalized = true
		}
		options = append(options, n)
	}
	if normalized {
		notes = append(notes, "options normalized to NFC")
	}
	if len(options) < minOptions {
		notes = append(notes, fmt.Sprintf("%d option(s): padded to %d", len(options), minOptions))
		for i := len(options); i < minOptions; i++ {
			options = append(options, PlaceholderOption(i))
		}
	}

	idx := q.CorrectIndex
	if idx < 0 || idx >= len(options) {
		notes = append(notes, fmt.Sprintf("correct index %d out of range: reset to 0", idx))
		idx = 0
	}

	return Question{Text: text, Options: options, CorrectIndex: idx}, notes
}

func repairQuestionAnswer(in QuestionAnswer) (Envelope, []string) {
	var notes []string
	if len(in.Questions) == 0 {
		notes = append(notes, "empty question list: placeholder question added")
		return QuestionAnswer{Questions: []FreeQuestion{{Text: PlaceholderQuestion}}}, notes
	}

	out := make([]FreeQuestion, 0, len(in.Questions))
	for i, q := range in.Questions {
		text, changed := repairText(q.Text)
		if changed != "" {
			notes = append(notes, fmt.Sprintf("question %d: %s", i+1, changed))
		}
		out = append(out, FreeQuestion{Text: text})
	}
	return QuestionAnswer{Questions: out}, notes
}

// repairText returns the repaired text and a note when it had to change.
func repairText(s string) (string, string) {
	if strings.TrimSpace(s) == "" {
		return PlaceholderQuestion, "blank text replaced"
	}
	if n := norm.NFC.String(s); n != s {
		return n, "text normalized to NFC"
	}
	return s, ""
}

func placeholderQuestion() Question {
	options := make([]string, 0, minOptions)
	for i := 0; i < minOptions; i++ {
		options = append(options, PlaceholderOption(i))
	}
	return Question{Text: PlaceholderQuestion, Options: options, CorrectIndex: 0}
}
