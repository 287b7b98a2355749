package jailconf

import (
	"context"
	"reflect"
	"testing"
	"unicode/utf8"
)

func FuzzParseString(f *testing.F) {
	seeds := []string{
		"",
		"www { persist; }",
		"www { host.hostname = \"www\"; }",
		"www { ip4.addr += \"lo1|127.0.1.1/32\"; }",
		"* { path = \"/usr/jails/$name\"; }",
		"persist;\npath = \"/usr/jails\";",
		"a { x = \"1\"; } b { y = \"2\"; }",
		"# comment\nwww { persist; } // trailing\n/* block */",
		"www { exec.start = \"say \\\"hi\\\"\"; }",
		"www {",
		"www { persist }",
		"www { bad-key; }",
		"{ persist; }",
		"www { key = \"unterminated; }",
		"www { nested { persist; } }",
		"😊 { smile = \"yes\"; }",
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		doc, err := ParseString(context.Background(), input)

		// All-or-nothing: exactly one of the results is set.
		if err != nil {
			if doc != nil {
				t.Errorf("non-nil document alongside error %v", err)
			}

			return
		}

		if doc == nil {
			t.Error("nil document without error")
			return
		}

		// Parsing is deterministic for a fixed input.
		again, err := ParseString(context.Background(), input)
		if err != nil {
			t.Errorf("second parse failed: %v", err)
			return
		}

		if !reflect.DeepEqual(doc, again) {
			t.Error("repeated parses disagree")
		}
	})
}
