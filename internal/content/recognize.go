package content

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// recognizer matches one historical shape of activity content.
type recognizer struct {
	name  string
	match func(obj map[string]any) (Envelope, bool)
}

// recognizers are tried in order; the first match wins.
var recognizers = []recognizer{
	{name: "text", match: matchText},
	{name: "video", match: matchVideo},
	{name: "qcm", match: matchQcm},
	{name: "question_reponse", match: matchQuestionAnswer},
	{name: "legacy_single_question", match: matchLegacySingleQuestion},
}

// RecognizerNames lists the shape recognizers in priority order.
func RecognizerNames() []string {
	names := make([]string, 0, len(recognizers))
	for _, r := range recognizers {
		names = append(names, r.name)
	}
	return names
}

var (
	textKeys    = []string{"texte", "question", "text"}
	bodyKeys    = []string{"contenu", "content"}
	linkKeys    = []string{"lien", "link", "url"}
	correctKeys = []string{"reponse_correcte", "correctAnswer", "correct_answer"}
)

func tagOf(obj map[string]any) (Kind, bool) {
	s, ok := obj["type"].(string)
	if !ok {
		return "", false
	}
	return ParseKind(s)
}

func matchText(obj map[string]any) (Envelope, bool) {
	if k, ok := tagOf(obj); !ok || k != KindText {
		return nil, false
	}
	key, ok := firstKey(obj, bodyKeys...)
	if !ok {
		return nil, false
	}

	switch body := obj[key].(type) {
	case nil:
		return Text{}, true
	case string:
		if isCanonical(obj) {
			return Text{Body: body}, true
		}
		return unwrapNested(body), true
	default:
		return Text{Body: stringify(body)}, true
	}
}

// unwrapNested handles the double-encapsulated form where a whole document
// was stored as the string body of a "texte" wrapper. Only one inner layer is
// parsed: the inner document's own string fields are taken literally.
func unwrapNested(body string) Envelope {
	inner, ok := parseObject(body)
	if !ok {
		return Text{Body: body}
	}
	k, ok := tagOf(inner)
	if !ok {
		return Text{Body: body}
	}

	var env Envelope
	switch k {
	case KindQcm:
		env, ok = matchQcm(inner)
	case KindQuestionAnswer:
		env, ok = matchQuestionAnswer(inner)
	case KindVideo:
		env, ok = matchVideo(inner)
	default:
		ok = false
	}
	if !ok {
		return Text{Body: body}
	}
	return env
}

func isCanonical(obj map[string]any) bool {
	n, ok := obj["schema_version"].(json.Number)
	if !ok {
		return false
	}
	v, err := n.Int64()
	return err == nil && v >= SchemaVersion
}

func matchVideo(obj map[string]any) (Envelope, bool) {
	if k, ok := tagOf(obj); !ok || k != KindVideo {
		return nil, false
	}
	link, _ := stringField(obj, linkKeys...)
	desc, _ := stringField(obj, "description")
	return Video{Link: link, Description: desc}, true
}

func matchQcm(obj map[string]any) (Envelope, bool) {
	if k, ok := tagOf(obj); !ok || k != KindQcm {
		return nil, false
	}
	if q, ok := singleQuestion(obj); ok {
		return Qcm{Questions: []Question{q}}, true
	}

	items, _ := obj["questions"].([]any)
	questions := make([]Question, 0, len(items))
	for _, item := range items {
		questions = append(questions, readQuestion(item))
	}
	return Qcm{Questions: questions}, true
}

func matchQuestionAnswer(obj map[string]any) (Envelope, bool) {
	if k, ok := tagOf(obj); !ok || k != KindQuestionAnswer {
		return nil, false
	}
	items, _ := obj["questions"].([]any)
	questions := make([]FreeQuestion, 0, len(items))
	for _, item := range items {
		var fq FreeQuestion
		switch v := item.(type) {
		case map[string]any:
			fq.Text, _ = stringField(v, textKeys...)
		default:
			fq.Text = stringify(v)
		}
		questions = append(questions, fq)
	}
	return QuestionAnswer{Questions: questions}, true
}

// matchLegacySingleQuestion recognises the untagged format that stored one
// question's fields at the top level.
func matchLegacySingleQuestion(obj map[string]any) (Envelope, bool) {
	if _, tagged := obj["type"]; tagged {
		return nil, false
	}
	q, ok := singleQuestion(obj)
	if !ok {
		return nil, false
	}
	return Qcm{Questions: []Question{q}}, true
}

func singleQuestion(obj map[string]any) (Question, bool) {
	if _, ok := obj["questions"].([]any); ok {
		return Question{}, false
	}
	if _, ok := firstKey(obj, "question", "texte"); !ok {
		return Question{}, false
	}
	if _, ok := obj["options"]; !ok {
		return Question{}, false
	}
	if _, ok := firstKey(obj, "correctAnswer", "reponse_correcte"); !ok {
		return Question{}, false
	}
	return readQuestion(obj), true
}

func readQuestion(item any) Question {
	obj, ok := item.(map[string]any)
	if !ok {
		return Question{Text: stringify(item), Options: []string{}, CorrectIndex: -1}
	}
	text, _ := stringField(obj, textKeys...)
	return Question{
		Text:         text,
		Options:      readOptions(obj["options"]),
		CorrectIndex: indexField(obj, correctKeys...),
	}
}

func readOptions(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, stringify(item))
	}
	return out
}

func firstKey(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return k, true
		}
	}
	return "", false
}

func stringField(obj map[string]any, keys ...string) (string, bool) {
	k, ok := firstKey(obj, keys...)
	if !ok {
		return "", false
	}
	return stringify(obj[k]), true
}

// indexField reads a correct-answer index. Missing or unusable values yield
// -1, which Validate resets.
func indexField(obj map[string]any, keys ...string) int {
	k, ok := firstKey(obj, keys...)
	if !ok {
		return -1
	}
	switch v := obj[k].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return clampIndex(i)
		}
		if f, err := v.Float64(); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			if f < 0 || f > math.MaxInt32 {
				return -1
			}
			return int(f)
		}
		return -1
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return -1
		}
		return clampIndex(i)
	default:
		return -1
	}
}

func clampIndex(i int64) int {
	if i < 0 || i > math.MaxInt32 {
		return -1
	}
	return int(i)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		s, err := marshalJSON(t)
		if err != nil {
			return ""
		}
		return s
	}
}
