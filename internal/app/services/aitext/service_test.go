package aitext

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rewear/service_layer/internal/app/domain/item"
)

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(context.Context, string) (string, error) {
	return s.reply, s.err
}

func TestDescription_FallsBack(t *testing.T) {
	it := item.Item{Title: "Wool Coat", Condition: item.ConditionGood, Size: "M"}

	// No generator configured.
	out, err := New(nil, nil).Description(context.Background(), it)
	if err != nil {
		t.Fatalf("description: %v", err)
	}
	if !strings.Contains(out, "Wool Coat") {
		t.Fatalf("fallback missing title: %q", out)
	}

	// Generator failing.
	out, err = New(stubGenerator{err: errors.New("down")}, nil).Description(context.Background(), it)
	if err != nil {
		t.Fatalf("description with failing generator: %v", err)
	}
	if !strings.Contains(out, "Wool Coat") {
		t.Fatalf("fallback missing title: %q", out)
	}

	// Generator answering.
	out, err = New(stubGenerator{reply: "A lovely coat."}, nil).Description(context.Background(), it)
	if err != nil {
		t.Fatalf("description: %v", err)
	}
	if out != "A lovely coat." {
		t.Fatalf("expected generator reply, got %q", out)
	}
}

func TestTagsAndCategory_ParsesJSON(t *testing.T) {
	svc := New(stubGenerator{reply: `{"category":"outerwear","tags":["winter","wool"]}`}, nil)
	sug, err := svc.TagsAndCategory(context.Background(), "Wool Coat", "")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if sug.Category != item.CategoryOuterwear {
		t.Fatalf("expected outerwear, got %s", sug.Category)
	}
	if len(sug.Tags) != 2 || sug.Tags[0] != "winter" {
		t.Fatalf("unexpected tags %v", sug.Tags)
	}
}

func TestTagsAndCategory_ProseFallback(t *testing.T) {
	svc := New(stubGenerator{reply: "This looks like outerwear to me"}, nil)
	sug, err := svc.TagsAndCategory(context.Background(), "Wool Coat", "")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if len(sug.Tags) != 1 || !strings.Contains(sug.Tags[0], "outerwear") {
		t.Fatalf("expected prose folded into a tag, got %v", sug.Tags)
	}
}

func TestTagsAndCategory_UnknownCategoryDefaults(t *testing.T) {
	svc := New(stubGenerator{reply: `{"category":"spacesuits","tags":[]}`}, nil)
	sug, err := svc.TagsAndCategory(context.Background(), "Helmet", "")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if sug.Category != item.CategoryOther {
		t.Fatalf("expected other, got %s", sug.Category)
	}
}

func TestHTTPGenerator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"  generated text  "}}]}`))
	}))
	defer server.Close()

	gen := &HTTPGenerator{Endpoint: server.URL, APIKey: "key-1", Model: "test"}
	out, err := gen.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "generated text" {
		t.Fatalf("expected trimmed completion, got %q", out)
	}
}

func TestHTTPGenerator_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	gen := &HTTPGenerator{Endpoint: server.URL}
	if _, err := gen.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
