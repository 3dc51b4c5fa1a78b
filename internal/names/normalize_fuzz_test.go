package names

import (
	"strings"
	"testing"
)

// FuzzNormalize checks that normalization never panics, is idempotent and
// never leaves separators the rules rely on being gone.
func FuzzNormalize(f *testing.F) {
	f.Add("")
	f.Add("José-García")
	f.Add("John O'Brien")
	f.Add("  a  -  b ..  ")
	f.Add("Ⅻ ℌ ㎒")
	f.Add(string([]byte{0xff, 0xfe, 0x41}))

	f.Fuzz(func(t *testing.T, input string) {
		once := Normalize(input)

		if twice := Normalize(once); twice != once {
			t.Errorf("not idempotent: %q -> %q -> %q", input, once, twice)
		}
		if strings.ContainsAny(once, "-'’.") {
			t.Errorf("separator survived normalization: %q", once)
		}
		if strings.Contains(once, "  ") || strings.TrimSpace(once) != once {
			t.Errorf("whitespace not collapsed: %q", once)
		}
	})
}
