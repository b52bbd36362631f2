package datasets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLabelMap(t *testing.T) {
	m := NewLabelMap()
	for i, name := range []string{"n01443537", "n01629819", "n01641577"} {
		if got := m.Add(name); got != i {
			t.Fatalf("Add(%q) = %d, want %d", name, got, i)
		}
	}
	if got := m.Add("n01629819"); got != 1 {
		t.Fatalf("re-adding a name returned %d, want 1", got)
	}
	if m.Len() != 3 {
		t.Fatalf("expected 3 classes, got %d", m.Len())
	}
	if idx, ok := m.Index("n01641577"); !ok || idx != 2 {
		t.Fatalf("Index = %d,%v", idx, ok)
	}
	if _, ok := m.Index("missing"); ok {
		t.Fatalf("unexpected hit for missing class")
	}
	names := m.Names()
	names[0] = "mutated"
	if m.Names()[0] != "n01443537" {
		t.Fatalf("Names must return a copy")
	}
}

func TestParseManifest(t *testing.T) {
	content := "val_0.JPEG\tn03444034\t0\t32\t44\t62\n" +
		"val_1.JPEG\tn04067472\t52\t55\t57\t59\n" +
		"\n" +
		"  val_2.JPEG   n04070727 \n"
	m, err := ParseManifest(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseManifest error: %v", err)
	}
	want := Manifest{
		"val_0.JPEG": "n03444034",
		"val_1.JPEG": "n04067472",
		"val_2.JPEG": "n04070727",
	}
	if !reflect.DeepEqual(m, want) {
		t.Fatalf("got %v, want %v", m, want)
	}

	_, err = ParseManifest(strings.NewReader("val_0.JPEG n1\nval_1.JPEG\n"))
	if !errors.Is(err, ErrMalformedManifest) {
		t.Fatalf("expected ErrMalformedManifest, got %v", err)
	}
}

func TestReadManifest(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "val_annotations.txt")
	if err := os.WriteFile(p, []byte("a.png cat\nb.png dog\n"), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	m, err := ReadManifest(p)
	if err != nil {
		t.Fatalf("ReadManifest error: %v", err)
	}
	if m["b.png"] != "dog" || len(m) != 2 {
		t.Fatalf("unexpected manifest %v", m)
	}

	if _, err := ReadManifest(filepath.Join(tmp, "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
