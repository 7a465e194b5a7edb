package history

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeStoreFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "known_pubs.tsv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeStoreFile(t,
		"title\tauthors\tdoi\tstate\tannotation\tqualifier\n"+
			"Galaxy Platform\tAfgan, E\t10.1/x\tinlib\t\t\n"+
			"Other Paper\tSmith, J\t\twait\twaiting on preprint\tmaybe\n")

	s, err := Load(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	rec := s.ByCanonicalDOI("10.1/x")
	if rec == nil {
		t.Fatal("record not findable by DOI")
	}
	if rec.Title() != "Galaxy Platform" || rec.State != StateInLib {
		t.Errorf("DOI record = %q/%q", rec.Title(), rec.State)
	}

	rec = s.ByCanonicalTitle("otherpaper")
	if rec == nil {
		t.Fatal("record not findable by canonical title")
	}
	if rec.Annotation != "waiting on preprint" || rec.Qualifier != "maybe" {
		t.Errorf("annotation/qualifier = %q/%q", rec.Annotation, rec.Qualifier)
	}
}

func TestLoadReorderedColumns(t *testing.T) {
	path := writeStoreFile(t,
		"state\ttitle\tdoi\tauthors\tannotation\tqualifier\n"+
			"ignore\tGalaxy Platform\t10.1/x\tAfgan, E\t\t\n")

	s, err := Load(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	rec := s.ByCanonicalTitle("galaxyplatform")
	if rec == nil || rec.State != StateIgnore || rec.DOI() != "10.1/x" {
		t.Errorf("reordered columns misread: %+v", rec)
	}
}

func TestLoadWithoutQualifierColumn(t *testing.T) {
	path := writeStoreFile(t,
		"title\tauthors\tdoi\tstate\tannotation\n"+
			"Galaxy Platform\tAfgan, E\t10.1/x\tinlib\t\n")

	s, err := Load(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if rec := s.ByCanonicalTitle("galaxyplatform"); rec == nil || rec.Qualifier != "" {
		t.Errorf("file without qualifier column misread: %+v", rec)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	path := writeStoreFile(t, "title\tauthors\tdoi\tannotation\tqualifier\n")
	if _, err := Load(path, zerolog.Nop()); err == nil {
		t.Fatal("Load succeeded on a file without a state column")
	}
}

func newRecord(t *testing.T, title, doi string, state State) *Record {
	t.Helper()
	rec := NewRecord()
	rec.SetTitle(title)
	rec.SetDOI(doi, zerolog.Nop())
	rec.State = state
	return rec
}

func TestAddReplacesSameTitle(t *testing.T) {
	s := NewStore()
	s.Add(newRecord(t, "Galaxy Platform", "10.1/old", StateNew))
	s.Add(newRecord(t, "Galaxy platform!!", "", StateIgnore))

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after re-adding the same publication", s.Len())
	}
	rec := s.ByCanonicalTitle("galaxyplatform")
	if rec == nil || rec.State != StateIgnore {
		t.Errorf("kept record = %+v, want the later one", rec)
	}
	if s.ByCanonicalDOI("10.1/old") != nil {
		t.Error("replaced record still findable by its DOI")
	}

	path := filepath.Join(t.TempDir(), "out.tsv")
	if err := s.Write(path, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("wrote %d rows, want header plus one record:\n%s", len(lines)-1, data)
	}
}

func TestWriteGroupsAndSorts(t *testing.T) {
	s := NewStore()
	s.Add(newRecord(t, "Zebra Paper", "", StateInLib))
	s.Add(newRecord(t, "Mango Paper", "", StateNew))
	s.Add(newRecord(t, "Apple Paper", "", StateIgnore))
	s.Add(newRecord(t, "Banana Paper", "", StateWait))

	path := filepath.Join(t.TempDir(), "out.tsv")
	if err := s.Write(path, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != "title\tauthors\tdoi\tstate\tannotation\tqualifier" {
		t.Errorf("header = %q", lines[0])
	}
	// Still-active entries first, resolved second, each alphabetical.
	wantOrder := []string{"Banana Paper", "Mango Paper", "Apple Paper", "Zebra Paper"}
	for i, want := range wantOrder {
		if !strings.HasPrefix(lines[i+1], want+"\t") {
			t.Errorf("row %d = %q, want title %q", i+1, lines[i+1], want)
		}
	}
}

func TestWriteCantGuessSavedAsWait(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	s := NewStore()
	s.Add(newRecord(t, "Undecided Paper", "", StateCantGuess))

	path := filepath.Join(t.TempDir(), "out.tsv")
	if err := s.Write(path, log); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\twait\t") {
		t.Errorf("cant-guess not saved as wait:\n%s", data)
	}
	if !strings.Contains(buf.String(), "cant-guess") {
		t.Errorf("state rewrite not warned about:\n%s", buf.String())
	}
}

func TestWriteUnknownStatePreserved(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	s := NewStore()
	s.Add(newRecord(t, "Known Paper", "", StateInLib))
	s.Add(newRecord(t, "Odd Paper", "", State("somebody-edited-this")))

	path := filepath.Join(t.TempDir(), "out.tsv")
	if err := s.Write(path, log); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if !strings.HasPrefix(lines[len(lines)-1], "Odd Paper\t") {
		t.Errorf("unknown-state row not written last:\n%s", data)
	}
	if !strings.Contains(string(data), "somebody-edited-this") {
		t.Errorf("unknown state not preserved verbatim:\n%s", data)
	}
	if !strings.Contains(buf.String(), "unknown state") {
		t.Errorf("unknown state not warned about:\n%s", buf.String())
	}
}

func TestRoundTrip(t *testing.T) {
	s := NewStore()
	rec := newRecord(t, "Galaxy Platform: a review", "https://doi.org/10.1/X", StateWait)
	rec.Authors = "Afgan, E; Baker, D"
	rec.Annotation = "ask the lab"
	rec.Qualifier = "review"
	s.Add(rec)

	path := filepath.Join(t.TempDir(), "out.tsv")
	if err := s.Write(path, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	got := loaded.ByCanonicalTitle(rec.CanonicalTitle())
	if got == nil {
		t.Fatal("record lost in round trip")
	}
	if got.Title() != rec.Title() || got.Authors != rec.Authors ||
		got.DOI() != "10.1/x" || got.State != rec.State ||
		got.Annotation != rec.Annotation || got.Qualifier != rec.Qualifier {
		t.Errorf("round trip changed the record: %+v -> %+v", rec, got)
	}
}
