package checksum

import "testing"

func TestSumKnownValue(t *testing.T) {
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != want {
		t.Errorf("Sum(nil) = %q, want %q", got, want)
	}
}

func TestOfTracksContent(t *testing.T) {
	a := Of(map[string]string{"name": "a"})
	b := Of(map[string]string{"name": "b"})
	if a == "" || a == b {
		t.Errorf("Of should differ for different values: %q vs %q", a, b)
	}
	if Of(func() {}) != "" {
		t.Error("unencodable value should yield empty checksum")
	}
}
