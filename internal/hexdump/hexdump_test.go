package hexdump

import "testing"

func TestWord(t *testing.T) {
	got := Word(0xFFFEFFFF)
	want := "FFFEFFFF"
	if got != want {
		t.Errorf("Word() = %q, want %q", got, want)
	}
}

func TestPreviewTruncates(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}
	got := Preview(data, 3)
	want := "DE AD BE ..."
	if got != want {
		t.Errorf("Preview() = %q, want %q", got, want)
	}
}

func TestPreviewNoTruncation(t *testing.T) {
	data := []byte{0x01, 0x02}
	got := Preview(data, 0)
	want := "01 02"
	if got != want {
		t.Errorf("Preview() = %q, want %q", got, want)
	}
}
