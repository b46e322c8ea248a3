package commands

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/AlecAivazis/survey/v2"
)

// scriptedAsk answers prompts by message prefix
func scriptedAsk(answers map[string]any) askFunc {
	return func(p survey.Prompt, response any, opts ...survey.AskOpt) error {
		var message string
		switch q := p.(type) {
		case *survey.MultiSelect:
			message = q.Message
		case *survey.Input:
			message = q.Message
		case *survey.Select:
			message = q.Message
		}
		for prefix, answer := range answers {
			if strings.HasPrefix(message, prefix) {
				reflect.ValueOf(response).Elem().Set(reflect.ValueOf(answer))
				return nil
			}
		}
		return fmt.Errorf("unexpected prompt %q", message)
	}
}

func TestAskSearch(t *testing.T) {
	opts := &searchOptions{filters: []string{"vaccinated=true"}}
	ask := scriptedAsk(map[string]any{
		"Species": []string{"cat", "dog"},
		"Maximum": " 150 ",
		"Scopes":  []string{"available"},
		"Sort":    "Price, high to low",
	})

	if err := askSearch(opts, []string{"available", "budget"}, ask); err != nil {
		t.Fatalf("askSearch failed: %v", err)
	}

	wantFilters := []string{"vaccinated=true", "species=cat", "species=dog", "price[lte]=150"}
	if !reflect.DeepEqual(opts.filters, wantFilters) {
		t.Errorf("filters = %v, want %v", opts.filters, wantFilters)
	}
	if !reflect.DeepEqual(opts.scopes, []string{"available"}) {
		t.Errorf("scopes = %v", opts.scopes)
	}
	if opts.sort != "-price" {
		t.Errorf("sort = %q, want -price", opts.sort)
	}
}

func TestAskSearchSkipsEmptyAnswers(t *testing.T) {
	opts := &searchOptions{}
	ask := scriptedAsk(map[string]any{
		"Species": []string{},
		"Maximum": "",
		"Sort":    "Newest first",
	})

	if err := askSearch(opts, nil, ask); err != nil {
		t.Fatalf("askSearch failed: %v", err)
	}
	if len(opts.filters) != 0 || len(opts.scopes) != 0 {
		t.Errorf("expected no filters or scopes, got %v %v", opts.filters, opts.scopes)
	}
	if opts.sort != "-listedOn" {
		t.Errorf("sort = %q, want -listedOn", opts.sort)
	}
}

func TestOptionalPrice(t *testing.T) {
	tests := []struct {
		answer  string
		wantErr bool
	}{
		{"", false},
		{"  ", false},
		{"85.50", false},
		{"cheap", true},
		{"-5", true},
	}

	for _, tt := range tests {
		err := optionalPrice(tt.answer)
		if (err != nil) != tt.wantErr {
			t.Errorf("optionalPrice(%q) error = %v, wantErr %v", tt.answer, err, tt.wantErr)
		}
	}
}

func TestSearchCommandInteractive(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("QUERYKIT_LOG_LEVEL", "error")

	cmd := newRootCommand(&app{ask: scriptedAsk(map[string]any{
		"Species": []string{"cat"},
		"Maximum": "100",
		"Scopes":  []string{},
		"Sort":    "Title",
	})})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--no-color", "search", "--interactive"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("search failed: %v\n%s", err, stderr.String())
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "1 listings\n") || !strings.Contains(out, "Senior tabby looking for a lap") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
