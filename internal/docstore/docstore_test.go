package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/tree"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenDir_LoadsKnownExtensions(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"NCT001.json":  `{"study_title": "Alpha"}`,
		"NCT002.yaml":  "title: Beta\narms: [A, B]\n",
		"NCT003.jsonc": "{\n // draft\n \"phase\": \"2\",\n}",
		"readme.txt":   "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s, err := OpenDir(dir, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := s.IDs()
	if len(ids) != 3 || ids[0] != "NCT001" || ids[2] != "NCT003" {
		t.Fatalf("expected 3 sorted ids, got %v", ids)
	}
	doc, err := s.Get(context.Background(), "NCT002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Beta" {
		t.Errorf("expected title Beta, got %q", doc.Title)
	}
	if doc.Revision != 1 {
		t.Errorf("expected revision 1, got %d", doc.Revision)
	}
	third, _ := s.Get(context.Background(), "NCT003")
	if third.Title != "NCT003" {
		t.Errorf("expected id fallback title, got %q", third.Title)
	}
}

func TestOpenDir_BadFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"a":`), 0o644)
	if _, err := OpenDir(dir, discardLogger()); err == nil {
		t.Error("expected decode error")
	}
}

func TestLocal_UpdateFieldAudits(t *testing.T) {
	s := NewLocal(discardLogger())
	doc, _ := tree.Parse([]byte(`{"arms":[{"name":"Placebo"},{"name":"Drug"}]}`))
	s.Put("S1", doc)

	err := s.UpdateField(context.Background(), FieldUpdate{
		Path: "arms[1].name", Value: tree.String("Drug X"), UpdatedBy: "reviewer@example.org", StudyID: "S1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := s.Get(context.Background(), "S1")
	v, _ := tree.Get(got.Tree, docpath.Of("arms", 1, "name"))
	if v != tree.String("Drug X") {
		t.Errorf("expected updated name, got %v", v)
	}
	if got.Revision != 2 {
		t.Errorf("expected revision 2, got %d", got.Revision)
	}

	entries, err := s.Audit(context.Background(), "S1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Path != "arms[1].name" || e.UpdatedBy != "reviewer@example.org" || e.ID == "" {
		t.Errorf("unexpected audit entry %+v", e)
	}
	if e.Delta.Old != tree.String("Drug") || e.Delta.New != tree.String("Drug X") {
		t.Errorf("unexpected delta %+v", e.Delta)
	}
	if !tree.Equal(e.Before, doc) || !tree.Equal(e.After, got.Tree) {
		t.Error("expected full before/after snapshots")
	}
}

func TestLocal_UpdateFieldErrors(t *testing.T) {
	s := NewLocal(discardLogger())
	doc, _ := tree.Parse([]byte(`{"arms":["A"]}`))
	s.Put("S1", doc)
	ctx := context.Background()

	if err := s.UpdateField(ctx, FieldUpdate{Path: "arms", StudyID: "missing", Value: tree.Null{}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateField(ctx, FieldUpdate{Path: "arms[5]", StudyID: "S1", Value: tree.Null{}}); !errors.Is(err, tree.ErrPathMismatch) {
		t.Errorf("expected ErrPathMismatch for out of range index, got %v", err)
	}
	if err := s.UpdateField(ctx, FieldUpdate{Path: "arms..x", StudyID: "S1", Value: tree.Null{}}); !errors.Is(err, tree.ErrPathMismatch) {
		t.Errorf("expected ErrPathMismatch for bad path, got %v", err)
	}
	if entries, _ := s.Audit(ctx, "S1"); len(entries) != 0 {
		t.Errorf("expected failed updates not to be audited, got %d", len(entries))
	}
}

func TestRemote_RoundTrip(t *testing.T) {
	var posted FieldUpdate
	var postedValue json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/studies/S1":
			w.Write([]byte(`{"study_id":"S1","revision":4,"document":{"study_title":"Gamma","b":1,"a":2}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/studies/S1/fields":
			var body struct {
				Path      string          `json:"path"`
				Value     json.RawMessage `json:"value"`
				UpdatedBy string          `json:"updatedBy"`
				StudyID   string          `json:"studyId"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			posted = FieldUpdate{Path: body.Path, UpdatedBy: body.UpdatedBy, StudyID: body.StudyID}
			postedValue = body.Value
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/studies/S1/audit":
			w.Write([]byte(`{"entries":[{"id":"e1","path":"b","delta":{"old":1,"new":3}}]}`))
		case r.URL.Path == "/studies/BUSY/fields":
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("try later"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewRemote(srv.URL, "k")
	defer c.Close()
	ctx := context.Background()

	doc, err := c.Get(ctx, "S1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Gamma" || doc.Revision != 4 {
		t.Errorf("unexpected document %+v", doc)
	}
	obj, _ := tree.AsObject(doc.Tree)
	if keys := obj.Keys(); keys[1] != "b" || keys[2] != "a" {
		t.Errorf("expected member order kept, got %v", keys)
	}

	if err := c.UpdateField(ctx, FieldUpdate{Path: "b", Value: tree.Number(3), UpdatedBy: "me", StudyID: "S1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if posted.Path != "b" || posted.UpdatedBy != "me" || string(postedValue) != "3" {
		t.Errorf("unexpected request %+v value %s", posted, postedValue)
	}

	entries, err := c.Audit(ctx, "S1")
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d (%v)", len(entries), err)
	}
	if entries[0].Delta.New != tree.Number(3) || !tree.IsNull(entries[0].Before) {
		t.Errorf("unexpected entry %+v", entries[0])
	}

	if _, err := c.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	err = c.UpdateField(ctx, FieldUpdate{Path: "a", Value: tree.Null{}, StudyID: "BUSY"})
	var se *StatusError
	if !errors.As(err, &se) || !se.Temporary() || se.Message != "try later" {
		t.Errorf("expected temporary status error, got %v", err)
	}
}

func TestTitleOf(t *testing.T) {
	cases := map[string]string{
		`{"study_identification":{"official_title":"Nested"}}`: "Nested",
		`{"title":""}`:                 "ID",
		`["not","an","object"]`:        "ID",
		`{"protocol_title":"Protocol"}`: "Protocol",
	}
	for src, want := range cases {
		v, _ := tree.Parse([]byte(src))
		if got := TitleOf("ID", v); got != want {
			t.Errorf("%s: expected %q, got %q", src, want, got)
		}
	}
}
