package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressBar(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, 4, 2)

	p.Increment()
	if s := p.String(); !strings.HasPrefix(s, "|██  |") ||
		!strings.Contains(s, "50.00%") {
		t.Errorf("unexpected bar %q", s)
	}

	p.Increment()
	p.Increment()
	if s := p.String(); !strings.HasPrefix(s, "|████|") ||
		!strings.Contains(s, "100.00%") {
		t.Errorf("unexpected bar %q", s)
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err == nil {
		t.Error("expected error closing twice")
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Error("close did not end the line")
	}
}
