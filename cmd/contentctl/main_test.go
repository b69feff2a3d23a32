package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func runCmd(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestNormalize(t *testing.T) {
	code, out, errOut := runCmd(t, `{"question":"Q","options":["A"],"correctAnswer":1}`+"\n", "normalize")
	if code != 0 {
		t.Fatalf("exit = %d, stderr %s", code, errOut)
	}
	want := `{"type":"qcm","questions":[{"texte":"Q","options":["A","Option 2"],"reponse_correcte":1}],"schema_version":2}` + "\n"
	if out != want {
		t.Errorf("stdout = %s, want %s", out, want)
	}
	if !strings.Contains(errOut, "repair: question 1:") {
		t.Errorf("stderr = %q, want repair notes", errOut)
	}
}

func TestNormalize_Check(t *testing.T) {
	canonical := `{"type":"texte","contenu":"Bonjour","schema_version":2}`

	if code, _, errOut := runCmd(t, canonical, "normalize", "-check"); code != 0 {
		t.Errorf("canonical input exit = %d, stderr %s", code, errOut)
	}
	if code, _, _ := runCmd(t, "Bonjour", "normalize", "-check"); code != 1 {
		t.Errorf("plain text exit = %d, want 1", code)
	}
}

func TestView(t *testing.T) {
	code, out, errOut := runCmd(t, "Hello world", "view")
	if code != 0 {
		t.Fatalf("exit = %d, stderr %s", code, errOut)
	}
	var got struct {
		Kind    string `json:"kind"`
		Content struct {
			Contenu string `json:"contenu"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("view output is not JSON: %v", err)
	}
	if got.Kind != "texte" || got.Content.Contenu != "Hello world" {
		t.Errorf("view = %+v", got)
	}
}

func TestXlsxRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.xlsx")
	qcm := `{"type":"qcm","questions":[{"texte":"Capital of France?","options":["Paris","London"],"reponse_correcte":0}],"schema_version":2}`

	if code, _, errOut := runCmd(t, qcm, "export-xlsx", path); code != 0 {
		t.Fatalf("export exit = %d, stderr %s", code, errOut)
	}
	code, out, errOut := runCmd(t, "", "import-xlsx", path)
	if code != 0 {
		t.Fatalf("import exit = %d, stderr %s", code, errOut)
	}
	if strings.TrimSpace(out) != qcm {
		t.Errorf("import-xlsx = %s, want %s", out, qcm)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"frobnicate"}, 2},
		{"export without OUT", []string{"export-xlsx"}, 1},
		{"import missing file", []string{"import-xlsx", "/nonexistent/quiz.xlsx"}, 1},
		{"export non-qcm", []string{"export-xlsx", "/tmp/unused.xlsx"}, 1},
		{"help", []string{"help"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCmd(t, "plain text", tt.args...); code != tt.want {
				t.Errorf("exit = %d, want %d", code, tt.want)
			}
		})
	}
}
