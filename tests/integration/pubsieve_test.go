// Package integration provides end-to-end tests for pubsieve commands.
package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	psBinary     string
	psBinaryOnce sync.Once
	psBinaryErr  error
)

// getBinary builds the pubsieve binary once and returns its path.
func getBinary(t *testing.T) string {
	t.Helper()
	psBinaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			psBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "pubsieve-test-*")
		if err != nil {
			psBinaryErr = err
			return
		}
		psBinary = filepath.Join(tmpDir, "pubsieve")

		cmd := exec.Command("go", "build", "-o", psBinary, "./cmd/pubsieve")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			psBinaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if psBinaryErr != nil {
		t.Fatalf("failed to build pubsieve: %v", psBinaryErr)
	}
	return psBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

func runCommand(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getBinary(t), args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const libraryCSV = "\ufeff" + `"Key","Item Type","Publication Year","Author","Title","Publication Title","DOI","Url","Date Added","Manual Tags"
"LIBKEY01","journalArticle","2018","Afgan, Enis","The Galaxy platform for accessible research","Nucleic Acids Research","10.1093/nar/gky379","","2018-07-02 17:48:40","+Methods"
`

// Scholar alert reporting the library pub plus a new one. No hrefs, so the
// run never touches the network.
const scholarEML = "From: scholaralerts-noreply@google.com\r\n" +
	"Subject: galaxy - new results\r\n" +
	"Content-Transfer-Encoding: 7bit\r\n" +
	"\r\n" +
	"<html><body>\r\n" +
	"<h3><a class=\"gse_alrt_title\">The Galaxy platform for accessible research</a></h3>\r\n" +
	"<div>E Afgan, D Baker - Nucleic Acids Research, 2018</div>\r\n" +
	"<h3><a class=\"gse_alrt_title\">A Brand New Workflow Paper</a></h3>\r\n" +
	"<div>J Smith - Bioinformatics, 2025</div>\r\n" +
	"</body></html>\r\n"

const knownPubsTSV = "title\tauthors\tdoi\tstate\tannotation\tqualifier\n" +
	"A Previously Ignored Paper\tDoe, J\t\tignore\tnot our field\t\n"

// setupRun lays out a complete run directory and returns it.
func setupRun(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "library.csv"), libraryCSV)
	if err := os.Mkdir(filepath.Join(dir, "alerts"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "alerts", "01.eml"), scholarEML)
	writeFile(t, filepath.Join(dir, "known_pubs.tsv"), knownPubsTSV)
	writeFile(t, filepath.Join(dir, "config.yml"), `
lib_type: zotero
lib_path: library.csv
alert_dir: alerts
known_pubs_in: known_pubs.tsv
known_pubs_out: known_pubs_new.tsv
curation_page: curation.html
`)
	return dir
}

func TestMatchRun(t *testing.T) {
	dir := setupRun(t)
	output, err := runCommand(t, dir, "match", "--config", "config.yml")
	if err != nil {
		t.Fatalf("match failed: %v\n%s", err, output)
	}

	page, err := os.ReadFile(filepath.Join(dir, "curation.html"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"The Galaxy platform for accessible research",
		"A Brand New Workflow Paper",
		"galaxy (googlescholar-email)",
		"1. Known",
		"1. New",
	} {
		if !strings.Contains(string(page), want) {
			t.Errorf("curation page missing %q", want)
		}
	}

	store, err := os.ReadFile(filepath.Join(dir, "known_pubs_new.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		// Library fields win over what the alert reported.
		"The Galaxy platform for accessible research\tAfgan, Enis\t10.1093/nar/gky379\tinlib",
		"A Brand New Workflow Paper\tJ Smith\t\tnew",
		"A Previously Ignored Paper\tDoe, J\t\tignore",
	} {
		if !strings.Contains(string(store), want) {
			t.Errorf("known pubs output missing %q, got:\n%s", want, store)
		}
	}
}

func TestMatchBadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yml"), "lib_type: zotero\n")

	output, err := runCommand(t, dir, "match", "--config", "config.yml")
	if err == nil {
		t.Fatalf("match succeeded on an incomplete config:\n%s", output)
	}
	if !strings.Contains(output, "lib_path") {
		t.Errorf("error does not name the missing field:\n%s", output)
	}
}

func TestSources(t *testing.T) {
	output, err := runCommand(t, t.TempDir(), "sources")
	if err != nil {
		t.Fatalf("sources failed: %v\n%s", err, output)
	}
	for _, want := range []string{"googlescholar-email", "sciencedirect-email", "webofscience-email"} {
		if !strings.Contains(output, want) {
			t.Errorf("sources output missing %q:\n%s", want, output)
		}
	}
}

func TestInitHistory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "library.csv"), libraryCSV)

	output, err := runCommand(t, dir, "init-history", "library.csv", "known_pubs.tsv")
	if err != nil {
		t.Fatalf("init-history failed: %v\n%s", err, output)
	}
	store, err := os.ReadFile(filepath.Join(dir, "known_pubs.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(store), "The Galaxy platform for accessible research") ||
		!strings.Contains(string(store), "\tinlib\t") {
		t.Errorf("seeded store missing the library pub:\n%s", store)
	}
	if !strings.Contains(string(store), "Imported from Zotero") {
		t.Errorf("seeded store missing the import annotation:\n%s", store)
	}
}
