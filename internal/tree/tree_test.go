package tree

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, s string) Value {
	t.Helper()
	v, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return v
}

func TestParse_PreservesMemberOrder(t *testing.T) {
	v := mustParse(t, `{"zeta":1,"alpha":{"b":true,"a":null},"mid":["x",2.5]}`)
	obj, ok := AsObject(v)
	if !ok {
		t.Fatalf("expected object, got %s", KindName(v))
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, obj.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"zeta":1,"alpha":{"b":true,"a":null},"mid":["x",2.5]}`
	if string(out) != want {
		t.Errorf("expected %s, got %s", want, out)
	}
}

func TestParse_RejectsTrailingData(t *testing.T) {
	if _, err := Parse([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestParseJSONC_StripsComments(t *testing.T) {
	v, err := ParseJSONC([]byte(`{
		// study identifier
		"nct_id": "NCT0001", /* inline */
		"phase": 3,
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"nct_id": "NCT0001", "phase": float64(3)}
	if diff := cmp.Diff(want, ToAny(v)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseYAML_OrderAndScalars(t *testing.T) {
	v, err := ParseYAML([]byte("title: Trial\nblinded: true\nsites: 12\nratio: 0.5\nnotes: ~\narms:\n  - A\n  - B\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, _ := AsObject(v)
	if diff := cmp.Diff([]string{"title", "blinded", "sites", "ratio", "notes", "arms"}, obj.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	want := map[string]any{
		"title": "Trial", "blinded": true, "sites": float64(12), "ratio": 0.5,
		"notes": nil, "arms": []any{"A", "B"},
	}
	if diff := cmp.Diff(want, ToAny(v)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_ByExtension(t *testing.T) {
	if _, err := Decode("study.yaml", []byte("a: 1\n")); err != nil {
		t.Errorf("yaml: unexpected error: %v", err)
	}
	if _, err := Decode("study.json", []byte("// c\n{}")); err == nil {
		t.Error("expected strict json to reject comments")
	}
	if _, err := Decode("study.jsonc", []byte("// c\n{}")); err != nil {
		t.Errorf("jsonc: unexpected error: %v", err)
	}
}

func TestGet(t *testing.T) {
	doc := mustParse(t, `{"arms":[{"name":"A"},{"name":"B"}],"0":"key"}`)
	v, ok := Get(doc, docpath.Of("arms", 1, "name"))
	if !ok || v != String("B") {
		t.Errorf("expected B, got %v (ok=%v)", v, ok)
	}
	if v, ok := Get(doc, docpath.Of("0")); !ok || v != String("key") {
		t.Errorf("expected numeric-looking key lookup to work, got %v", v)
	}
	for _, p := range []docpath.Path{docpath.Of("arms", 2), docpath.Of("arms", "name"), docpath.Of(0), docpath.Of("missing")} {
		if _, ok := Get(doc, p); ok {
			t.Errorf("expected %q to be missing", p)
		}
	}
}

func TestSet_CopiesAlongPath(t *testing.T) {
	doc := mustParse(t, `{"a":{"b":"old","c":[1,2]},"d":true}`)
	updated, err := Set(doc, docpath.Of("a", "b"), String("new"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := Get(doc, docpath.Of("a", "b")); v != String("old") {
		t.Errorf("expected original to stay old, got %v", v)
	}
	if v, _ := Get(updated, docpath.Of("a", "b")); v != String("new") {
		t.Errorf("expected updated value new, got %v", v)
	}
	obj, _ := AsObject(updated)
	if diff := cmp.Diff([]string{"a", "d"}, obj.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}

	updated, err = Set(updated, docpath.Of("a", "c", 1), Number(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"a": map[string]any{"b": "new", "c": []any{float64(1), float64(7)}}, "d": true}
	if diff := cmp.Diff(want, ToAny(updated)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_CreatesFinalKeyOnly(t *testing.T) {
	doc := mustParse(t, `{"a":{}}`)
	updated, err := Set(doc, docpath.Of("a", "new"), Bool(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := Get(updated, docpath.Of("a", "new")); v != Bool(true) {
		t.Errorf("expected created key, got %v", v)
	}
	if _, err := Set(doc, docpath.Of("x", "y"), Bool(true)); !errors.Is(err, ErrPathMismatch) {
		t.Errorf("expected ErrPathMismatch for missing intermediate key, got %v", err)
	}
}

func TestSet_Mismatch(t *testing.T) {
	doc := mustParse(t, `{"list":[1],"s":"x"}`)
	bad := []docpath.Path{docpath.Of("list", 3), docpath.Of("s", "k"), docpath.Of("list", "k"), docpath.Of(0)}
	for _, p := range bad {
		if _, err := Set(doc, p, Null{}); !errors.Is(err, ErrPathMismatch) {
			t.Errorf("set %q: expected ErrPathMismatch, got %v", p, err)
		}
	}
}

func TestEqual(t *testing.T) {
	a := mustParse(t, `{"x":1,"y":[true,null]}`)
	b := mustParse(t, `{"y":[true,null],"x":1}`)
	if !Equal(a, b) {
		t.Error("expected member order to be ignored")
	}
	if Equal(a, mustParse(t, `{"x":1,"y":[true,false]}`)) {
		t.Error("expected different arrays to differ")
	}
	if !Equal(nil, Null{}) {
		t.Error("expected absent and null to be equal")
	}
}

func TestNumber_String(t *testing.T) {
	cases := map[Number]string{12: "12", 0.5: "0.5", -3.25: "-3.25", 1e6: "1000000"}
	for n, want := range cases {
		if got := n.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestParse_IntegerPrecision(t *testing.T) {
	cases := map[string]string{
		`{"id":9007199254740991}`: `{"id":9007199254740991}`,
		`{"id":-42}`:              `{"id":-42}`,
		// Past 2^53 the nearest double is kept.
		`{"id":9007199254740993}`: `{"id":9007199254740992}`,
	}
	for in, want := range cases {
		out, err := json.Marshal(mustParse(t, in))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(out) != want {
			t.Errorf("%s: expected %s, got %s", in, want, out)
		}
	}
}
