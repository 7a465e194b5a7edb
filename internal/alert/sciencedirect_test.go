package alert

import (
	"testing"

	"github.com/rs/zerolog"
)

const sdBody = `<html><body>
<p>Access the new results</p>
<p>TITLE(quot;galaxyquot;)</p>
<table>
<tr><td class="txtcontent">
<a href="http://sdlinks.example.com/track?a=1&_piikey=S0044848624001234&b=2">link</a>
<span class="artTitle">Aquaculture <span>genomics</span> in practice</span>
<i>Aquaculture, Volume 579, 2024</i>
<span class="authorTxt">Eugene Matthew P. Almazan, Sydney L. Lesko</span>
</td></tr>
<tr><td class="txtcontent">
<a href="http://sdlinks.example.com/notrack">link</a>
<span class="artTitle">A second result</span>
<span class="authorTxt">Ada Lovelace</span>
</td></tr>
</table>
</body></html>`

func TestSDParse(t *testing.T) {
	p := NewSDParser()
	msg := Message{
		Sender:  "ScienceDirect Alerts <salert@prod.sciencedirect.com>",
		Subject: "ScienceDirect Search Alert",
		Body:    sdBody,
	}
	if !p.Sniff(msg) {
		t.Fatal("Sniff rejected a ScienceDirect message")
	}

	pas, err := p.Parse(msg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(pas) != 2 {
		t.Fatalf("parsed %d pub alerts, want 2", len(pas))
	}

	if got := pas[0].Alert.Search; got != `TITLE("galaxy")` {
		t.Errorf("Search = %q, mangled quotes not restored", got)
	}

	first := pas[0].Pub
	if got := first.Title; got != "Aquaculture genomics in practice" {
		t.Errorf("Title = %q", got)
	}
	if got := first.URL; got != "http://www.sciencedirect.com/science/article/pii/S0044848624001234" {
		t.Errorf("URL = %q, pii key not rebuilt into a direct link", got)
	}
	if first.Ref != "Aquaculture, Volume 579, 2024" || first.Year != "2024" {
		t.Errorf("Ref/Year = %q/%q", first.Ref, first.Year)
	}
	if got := first.CanonicalFirstAuthor; got != "almazan" {
		t.Errorf("CanonicalFirstAuthor = %q, want %q", got, "almazan")
	}
	if first.CanonicalDOI != "" {
		t.Errorf("CanonicalDOI = %q, alerts carry no DOI", first.CanonicalDOI)
	}

	second := pas[1].Pub
	if second.URL != "http://sdlinks.example.com/notrack" {
		t.Errorf("URL = %q, keyless link must pass through unchanged", second.URL)
	}
	if second.CanonicalFirstAuthor != "lovelace" {
		t.Errorf("CanonicalFirstAuthor = %q, want %q", second.CanonicalFirstAuthor, "lovelace")
	}
}

func TestSDFirstAuthor(t *testing.T) {
	tests := []struct {
		authors, want string
	}{
		{"Eugene Matthew P. Almazan, Sydney L. Lesko", "almazan"},
		{"Ada Lovelace", "lovelace"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sdFirstAuthor(tt.authors); got != tt.want {
			t.Errorf("sdFirstAuthor(%q) = %q, want %q", tt.authors, got, tt.want)
		}
	}
}
