package sanitize

import "testing"

func TestText(t *testing.T) {
	got := Text("  <b>call</b>   back\n tomorrow <script>x</script> ")
	if got != "call back tomorrow x" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}

func TestFoldRemovesDiacritics(t *testing.T) {
	if got := Fold("  José  Núñez "); got != "jose nunez" {
		t.Fatalf("Fold = %q", got)
	}
}
