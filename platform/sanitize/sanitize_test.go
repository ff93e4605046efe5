package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "Hello there", "Hello there"},
		{"tags", "<b>Hi</b> <i>you</i>", "Hi you"},
		{"script", "ok<script>alert(1)</script>", "ok"},
		{"entities", "a &lt;b&gt; c", "a <b> c"},
		{"whitespace", "  many   spaces \n next\tline ", "many spaces\nnext line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Fatalf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
