package content_test

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/Ethan041028/audacieuses-content/internal/content"
)

// corpus mixes every shape the decoder has to cope with.
func corpus() map[string]any {
	return map[string]any{
		"plain text":          "Hello world",
		"blank":               "",
		"malformed json":      "{texte: 'bad json'}",
		"json scalar":         "true",
		"text envelope":       `{"type":"texte","contenu":"Lire <b>attentivement</b> & répondre"}`,
		"text body is json":   content.Text{Body: `{"type":"qcm","questions":[]}`},
		"text body is nested": `{"type":"texte","contenu":"{\"type\":\"texte\",\"contenu\":\"x\"}"}`,
		"video":               `{"type":"video","lien":"https://example.org/v","description":"Intro"}`,
		"video without link":  map[string]any{"type": "video"},
		"qcm": map[string]any{
			"type": "qcm",
			"questions": []any{
				map[string]any{"texte": "Capital of France?", "options": []string{"Paris", "London", "Berlin", "Madrid"}, "reponse_correcte": 0},
			},
		},
		"qcm broken": `{"type":"qcm","questions":[{"options":["Red"],"reponse_correcte":5},"loose",{"texte":"  ","options":"A,B"}]}`,
		"qcm empty":  `{"type":"qcm","questions":[]}`,
		"legacy single": map[string]any{
			"question":      "Capital of Germany?",
			"options":       []string{"Paris", "London", "Berlin", "Madrid"},
			"correctAnswer": 2,
		},
		"double encapsulated": `{"type":"texte","contenu":"{\"type\":\"qcm\",\"questions\":[{\"texte\":\"Q\",\"options\":[\"A\",\"B\"],\"reponse_correcte\":1}]}"}`,
		"qa":                  `{"type":"question_reponse","questions":[{"texte":"Pourquoi ?"},{}]}`,
		"qa empty":            map[string]any{"type": "question_reponse"},
		"unknown tag":         map[string]any{"type": "flashcard", "front": "A"},
		"decomposed accents":  content.Qcm{Questions: []content.Question{{Text: "é", Options: []string{"à"}}}},
		"nil":                 nil,
		"invalid utf-8":       "caf\xe9",
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	for name, raw := range corpus() {
		t.Run(name, func(t *testing.T) {
			want := content.Validate(content.Decode(raw))

			encoded, err := content.Encode(want)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got := content.Decode(encoded)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Decode(Encode(e)) = %#v, want %#v (encoded %s)", got, want, encoded)
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	for name, raw := range corpus() {
		t.Run(name, func(t *testing.T) {
			once := content.Validate(content.Decode(raw))
			twice, notes := content.Repair(once)
			if !reflect.DeepEqual(once, twice) {
				t.Errorf("Validate(Validate(x)) = %#v, want %#v", twice, once)
			}
			if notes != nil {
				t.Errorf("second pass reported repairs: %v", notes)
			}
		})
	}
}

func TestValidate_RepairCompleteness(t *testing.T) {
	for name, raw := range corpus() {
		t.Run(name, func(t *testing.T) {
			switch v := content.Validate(content.Decode(raw)).(type) {
			case content.Qcm:
				if len(v.Questions) == 0 {
					t.Fatal("Qcm has no questions")
				}
				for i, q := range v.Questions {
					if q.Text == "" {
						t.Errorf("question %d: empty text", i)
					}
					if len(q.Options) < 2 {
						t.Errorf("question %d: %d options", i, len(q.Options))
					}
					if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
						t.Errorf("question %d: correct index %d out of range", i, q.CorrectIndex)
					}
				}
			case content.QuestionAnswer:
				if len(v.Questions) == 0 {
					t.Fatal("QuestionAnswer has no questions")
				}
				for i, q := range v.Questions {
					if q.Text == "" {
						t.Errorf("question %d: empty text", i)
					}
				}
			case content.Text, content.Video:
			default:
				t.Fatalf("unexpected envelope %T", v)
			}
		})
	}
}

func TestEncode_CanonicalShapes(t *testing.T) {
	tests := []struct {
		name string
		in   content.Envelope
		want string
	}{
		{
			name: "text",
			in:   content.Text{Body: "a < b & c"},
			want: `{"type":"texte","contenu":"a < b & c","schema_version":2}`,
		},
		{
			name: "text holding json",
			in:   content.Text{Body: `{"type":"qcm"}`},
			want: `{"type":"texte","contenu":"{\"type\":\"qcm\"}","schema_version":2}`,
		},
		{
			name: "video without description",
			in:   content.Video{Link: "https://example.org/v"},
			want: `{"type":"video","lien":"https://example.org/v","schema_version":2}`,
		},
		{
			name: "video",
			in:   content.Video{Link: "v", Description: "d"},
			want: `{"type":"video","lien":"v","description":"d","schema_version":2}`,
		},
		{
			name: "qcm is validated on the way out",
			in:   content.Qcm{Questions: []content.Question{{Text: "Q", Options: []string{"A"}, CorrectIndex: 3}}},
			want: `{"type":"qcm","questions":[{"texte":"Q","options":["A","Option 2"],"reponse_correcte":0}],"schema_version":2}`,
		},
		{
			name: "question answer",
			in:   content.QuestionAnswer{Questions: []content.FreeQuestion{{Text: "Pourquoi ?"}}},
			want: `{"type":"question_reponse","questions":[{"texte":"Pourquoi ?"}],"schema_version":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := content.Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncode_NoLegacyShapes(t *testing.T) {
	inputs := []any{
		map[string]any{"question": "Q", "options": []string{"A", "B"}, "correctAnswer": 1},
		`{"type":"texte","contenu":"{\"type\":\"video\",\"lien\":\"v\"}"}`,
	}
	for _, raw := range inputs {
		encoded, err := content.EncodeValue(raw)
		if err != nil {
			t.Fatalf("EncodeValue() error = %v", err)
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(encoded), &doc); err != nil {
			t.Fatalf("encoded content is not JSON: %v", err)
		}
		if _, ok := doc["question"]; ok {
			t.Errorf("encoded %s keeps the legacy single-question shape", encoded)
		}
		if doc["type"] == "texte" {
			t.Errorf("encoded %s is still double encapsulated", encoded)
		}
	}
}

func TestEncode_NilEnvelope(t *testing.T) {
	_, err := content.Encode(nil)
	var encErr *content.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("Encode(nil) error = %v, want *EncodingError", err)
	}
}

func TestEncodeValue_Unserialisable(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	tests := []struct {
		name string
		raw  any
	}{
		{"function", func() {}},
		{"channel", make(chan int)},
		{"cyclic map", cyclic},
		{"nan", map[string]any{"type": "qcm", "x": math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := content.EncodeValue(tt.raw)
			if err == nil {
				t.Fatal("EncodeValue() should fail")
			}
			var encErr *content.EncodingError
			if !errors.As(err, &encErr) {
				t.Errorf("EncodeValue() error = %v, want *EncodingError", err)
			}
		})
	}
}

func TestCheckValue(t *testing.T) {
	cyclic := []any{nil}
	cyclic[0] = cyclic

	if err := content.CheckValue(map[string]any{"type": "qcm"}); err != nil {
		t.Errorf("CheckValue(map) error = %v", err)
	}
	if err := content.CheckValue(content.Text{Body: "x"}); err != nil {
		t.Errorf("CheckValue(Text) error = %v", err)
	}
	var encErr *content.EncodingError
	if err := content.CheckValue(cyclic); !errors.As(err, &encErr) {
		t.Errorf("CheckValue(cyclic slice) error = %v, want *EncodingError", err)
	}
}

func TestEncodeValue_SloppyInputIsNotAnError(t *testing.T) {
	for name, raw := range corpus() {
		t.Run(name, func(t *testing.T) {
			if _, err := content.EncodeValue(raw); err != nil {
				t.Errorf("EncodeValue() error = %v", err)
			}
		})
	}
}

func TestCheckCanonical(t *testing.T) {
	t.Run("every encoding is canonical", func(t *testing.T) {
		for name, raw := range corpus() {
			encoded, err := content.EncodeValue(raw)
			if err != nil {
				t.Fatalf("%s: EncodeValue() error = %v", name, err)
			}
			if err := content.CheckCanonical(encoded); err != nil {
				t.Errorf("%s: CheckCanonical(%s) error = %v", name, encoded, err)
			}
		}
	})

	rejected := map[string]string{
		"legacy text":     `{"type":"texte","contenu":"x"}`,
		"legacy single":   `{"question":"Q","options":["A","B"],"correctAnswer":1}`,
		"one option":      `{"type":"qcm","questions":[{"texte":"Q","options":["A"],"reponse_correcte":0}],"schema_version":2}`,
		"negative index":  `{"type":"qcm","questions":[{"texte":"Q","options":["A","B"],"reponse_correcte":-1}],"schema_version":2}`,
		"blank question":  `{"type":"question_reponse","questions":[{"texte":"  "}],"schema_version":2}`,
		"no questions":    `{"type":"question_reponse","questions":[],"schema_version":2}`,
		"unknown type":    `{"type":"flashcard","schema_version":2}`,
		"not json":        `Hello`,
		"extra field":     `{"type":"video","lien":"v","autoplay":true,"schema_version":2}`,
		"wrong version":   `{"type":"texte","contenu":"x","schema_version":1}`,
	}
	for name, doc := range rejected {
		t.Run(name, func(t *testing.T) {
			if err := content.CheckCanonical(doc); !errors.Is(err, content.ErrNotCanonical) {
				t.Errorf("CheckCanonical(%s) error = %v, want ErrNotCanonical", doc, err)
			}
		})
	}
}

func TestCodec_Concurrent(t *testing.T) {
	inputs := corpus()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, raw := range inputs {
				encoded, err := content.EncodeValue(raw)
				if err != nil {
					t.Errorf("EncodeValue() error = %v", err)
					return
				}
				if err := content.CheckCanonical(encoded); err != nil {
					t.Errorf("CheckCanonical() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
