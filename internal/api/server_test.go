package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/protoreview/internal/config"
	"github.com/dgallion1/protoreview/internal/coverage"
	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/docstore"
	"github.com/dgallion1/protoreview/internal/layout"
	"github.com/dgallion1/protoreview/internal/patch"
	"github.com/dgallion1/protoreview/internal/render"
	"github.com/dgallion1/protoreview/internal/sourcedoc"
	"github.com/dgallion1/protoreview/internal/tree"
)

const testKey = "secret"

const studyJSON = `{
	"study_title": "A Phase 3 Trial",
	"study_title_provenance": {"page_number": 1, "text_snippet": "Phase 3"},
	"sponsor": {"name": "Acme", "provenance": {"page_number": 2}},
	"arms": [{"name": "Placebo"}, {"name": "Drug"}],
	"extra_notes": "left over"
}`

const layoutYAML = `tabs:
  - id: overview
    title: Overview
    fields:
      - path: study_title
      - path: sponsor
  - id: design
    title: Design
    fields:
      - path: arms
`

type fixture struct {
	srv        *Server
	store      *docstore.Local
	dispatcher *patch.Dispatcher
}

func newFixture(t *testing.T, editing bool) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := docstore.NewLocal(log)
	doc, err := tree.Parse([]byte(studyJSON))
	require.NoError(t, err)
	store.Put("NCT01", doc)

	lay, err := layout.Parse("layout.yaml", []byte(layoutYAML))
	require.NoError(t, err)

	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "NCT01.txt"),
		[]byte("Cover\fA Phase 3 Trial of Drug\fSponsored by Acme"), 0o644))

	stats := patch.NewStats(time.Minute)
	svc := patch.NewService(store, stats, log)
	dispatcher := patch.NewDispatcher(svc, patch.NewNotifications(time.Hour), patch.DispatcherConfig{
		Workers: 1, QueueSize: 8, RetryBase: time.Millisecond, RetryMax: time.Millisecond,
	}, log)
	dispatcher.Start(context.Background())
	t.Cleanup(dispatcher.Stop)

	cfg := config.Config{APIKey: testKey, EditingEnabled: editing, MaxBodyBytes: 1 << 20}
	srv := NewServer(Deps{
		Store:      store,
		Layout:     lay,
		Sessions:   coverage.NewStore(time.Hour),
		Dispatcher: dispatcher,
		Stats:      stats,
		Sources:    sourcedoc.NewLibrary(srcDir, sourcedoc.PageMap{FirstNumberedPage: 1, PageOffset: 1}, sourcedoc.Options{}),
	}, log, cfg)
	return &fixture{srv: srv, store: store, dispatcher: dispatcher}
}

func (f *fixture) do(t *testing.T, method, target, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth_Public(t *testing.T) {
	f := newFixture(t, true)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth_RejectsMissingAndWrongKey(t *testing.T) {
	f := newFixture(t, true)

	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/studies/NCT01/tabs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/studies/NCT01/tabs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid api key", decode(t, rec)["error"])
}

func TestSession_MintedWhenAbsent(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/api/studies/NCT01/tabs", "", "")
	assert.NotEmpty(t, rec.Header().Get(SessionHeader))

	rec = f.do(t, http.MethodGet, "/api/studies/NCT01/tabs", "mine", "")
	assert.Equal(t, "mine", rec.Header().Get(SessionHeader))
}

func TestListTabs_IncludesUnmapped(t *testing.T) {
	f := newFixture(t, true)
	body := decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/tabs", "s", ""))
	tabs := body["tabs"].([]any)
	require.Len(t, tabs, 3)
	assert.Equal(t, "overview", tabs[0].(map[string]any)["id"])
	assert.Equal(t, layout.UnmappedTabID, tabs[2].(map[string]any)["id"])
}

func TestMountTab_TracksCoverage(t *testing.T) {
	f := newFixture(t, true)

	body := decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/tabs/overview", "s1", ""))
	assert.Equal(t, "A Phase 3 Trial", body["study_title"])
	cov := body["coverage"].(map[string]any)
	assert.EqualValues(t, 2, cov["rendered"])
	assert.EqualValues(t, 4, cov["total"])
	assert.EqualValues(t, 50, cov["percentage"])

	node := body["node"].(map[string]any)
	assert.Equal(t, "Overview", node["label"])

	f.do(t, http.MethodGet, "/api/studies/NCT01/tabs/design", "s1", "")
	body = decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/coverage", "s1", ""))
	assert.Equal(t, true, body["initialized"])
	assert.EqualValues(t, 75, body["coverage"].(map[string]any)["percentage"])
	assert.Equal(t, []any{"extra_notes"}, body["unrendered"])

	// Another session starts from nothing.
	body = decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/coverage", "s2", ""))
	assert.Equal(t, false, body["initialized"])
	assert.EqualValues(t, 0, body["coverage"].(map[string]any)["rendered"])
}

func TestMountTab_Errors(t *testing.T) {
	f := newFixture(t, true)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/studies/NCT01/tabs/nope", "s", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/studies/NCT99/tabs/overview", "s", "").Code)
}

func TestMountTab_HTML(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/api/studies/NCT01/tabs/overview?format=html", "s", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `data-path="study_title"`)
	assert.Contains(t, rec.Body.String(), `data-page="2"`)

	rec = f.do(t, http.MethodGet, "/api/studies/NCT01/tabs/overview?format=html&mode=view", "s", "")
	assert.NotContains(t, rec.Body.String(), "<input")
}

func TestUnmapped_DoesNotMark(t *testing.T) {
	f := newFixture(t, true)
	f.do(t, http.MethodGet, "/api/studies/NCT01/tabs/overview", "s1", "")

	body := decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/unmapped", "s1", ""))
	data := body["data"].(map[string]any)
	assert.Contains(t, data, "arms")
	assert.Contains(t, data, "extra_notes")
	assert.NotContains(t, data, "sponsor")
	assert.EqualValues(t, 2, body["coverage"].(map[string]any)["rendered"])

	// The unmapped tab ID routes to the same fragment.
	body = decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/tabs/unmapped", "s1", ""))
	assert.Equal(t, layout.UnmappedTabID, body["tab"])
}

func TestDisposeSession(t *testing.T) {
	f := newFixture(t, true)
	f.do(t, http.MethodGet, "/api/studies/NCT01/tabs/overview", "s1", "")
	body := decode(t, f.do(t, http.MethodDelete, "/api/sessions/current", "s1", ""))
	assert.Equal(t, true, body["disposed"])

	body = decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/coverage", "s1", ""))
	assert.Equal(t, false, body["initialized"])
}

func waitForNotification(t *testing.T, f *fixture, session string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		body := decode(t, f.do(t, http.MethodGet, "/api/notifications", session, ""))
		list := body["notifications"].([]any)
		if len(list) == 1 {
			n := list[0].(map[string]any)
			if n["status"] == string(patch.StatusApplied) || n["status"] == string(patch.StatusFailed) {
				return n
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for notification")
	return nil
}

func TestPatchField_AppliesEdit(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodPatch, "/api/studies/NCT01/fields", "s1", `{"path":"arms[1].name","value":"Drug X"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	editID := body["edit_id"].(string)
	assert.NotEmpty(t, editID)
	assert.Equal(t, "arms[1].name", body["path"])

	n := waitForNotification(t, f, "s1")
	assert.Equal(t, string(patch.StatusApplied), n["status"])
	assert.Equal(t, editID, n["id"])

	doc, err := f.store.Get(context.Background(), "NCT01")
	require.NoError(t, err)
	v, _ := tree.Get(doc.Tree, docpath.Of("arms", 1, "name"))
	assert.Equal(t, tree.String("Drug X"), v)

	audit := decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/audit", "s1", ""))
	entries := audit["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "reviewer", entries[0].(map[string]any)["updated_by"])

	rec = f.do(t, http.MethodDelete, "/api/notifications/"+editID, "s1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/notifications/"+editID, "s1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenderContext_NodeEditsReachDispatcher(t *testing.T) {
	f := newFixture(t, true)
	doc, err := f.store.Get(context.Background(), "NCT01")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/studies/NCT01/tabs/design", nil)
	req = req.WithContext(context.WithValue(req.Context(), sessionKey{}, "s1"))
	root := render.Render(doc.Tree, docpath.Root, f.srv.renderContext(req, doc))

	leaf := root.Leaf(docpath.Of("arms", 1, "name"))
	require.NotNil(t, leaf)
	sess := leaf.Edit()
	require.NotNil(t, sess)
	sess.Set("Drug X")
	require.NoError(t, sess.Commit())

	n := waitForNotification(t, f, "s1")
	assert.Equal(t, string(patch.StatusApplied), n["status"])
	doc, err = f.store.Get(context.Background(), "NCT01")
	require.NoError(t, err)
	v, _ := tree.Get(doc.Tree, docpath.Of("arms", 1, "name"))
	assert.Equal(t, tree.String("Drug X"), v)

	readOnly := httptest.NewRequest(http.MethodGet, "/api/studies/NCT01/tabs/design?mode=view", nil)
	ctx := f.srv.renderContext(readOnly, doc)
	assert.False(t, ctx.Editable)
	assert.Nil(t, ctx.OnEdit)
}

func TestPatchField_FailureIsNotified(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodPatch, "/api/studies/NCT01/fields", "s1", `{"path":"arms[7].name","value":"X"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	n := waitForNotification(t, f, "s1")
	assert.Equal(t, string(patch.StatusFailed), n["status"])
	assert.EqualValues(t, http.StatusUnprocessableEntity, n["status_code"])
}

func TestPatchField_Validation(t *testing.T) {
	f := newFixture(t, true)
	cases := map[string]string{
		"not json":      `{`,
		"missing path":  `{"value":1}`,
		"missing value": `{"path":"study_title"}`,
		"bad path":      `{"path":"a..b","value":1}`,
		"root path":     `{"path":"","value":1}`,
	}
	for name, body := range cases {
		rec := f.do(t, http.MethodPatch, "/api/studies/NCT01/fields", "s", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	rec := f.do(t, http.MethodPatch, "/api/studies/NCT99/fields", "s", `{"path":"x","value":null}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchField_EditingDisabled(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodPatch, "/api/studies/NCT01/fields", "s", `{"path":"study_title","value":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/tabs/overview", "s", ""))
	title := body["node"].(map[string]any)["children"].([]any)[0].(map[string]any)
	child := title["children"].([]any)[0].(map[string]any)
	assert.Equal(t, "text", child["kind"])
}

func TestCitation(t *testing.T) {
	f := newFixture(t, true)
	body := decode(t, f.do(t, http.MethodGet, "/api/studies/NCT01/citations/1?snippet=phase%203%20trial", "s", ""))
	assert.EqualValues(t, 2, body["physical_page"])
	assert.Equal(t, "A Phase 3 Trial of Drug", body["text"])
	v := body["verification"].(map[string]any)
	assert.Equal(t, true, v["found"])

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/studies/NCT01/citations/zero", "s", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/studies/NCT02/citations/1", "s", "").Code)
}

func TestPatchStats(t *testing.T) {
	f := newFixture(t, true)
	body := decode(t, f.do(t, http.MethodGet, "/api/stats/patch", "s", ""))
	assert.Contains(t, body, "stats")
	assert.EqualValues(t, 0, body["queue_depth"])
}
