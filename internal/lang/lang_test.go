package lang

import "testing"

func TestFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Language
		ok   bool
	}{
		{".go", LangGo, true},
		{".py", LangPython, true},
		{".PY", LangPython, true},
		{".ts", LangTypeScript, true},
		{".tsx", LangTSX, true},
		{".jsx", LangJavaScript, true},
		{".rs", LangRust, true},
		{".java", LangJava, true},
		{".kt", LangKotlin, true},
		{".txt", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := FromExtension(tt.ext)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FromExtension(%q) = (%q, %v), want (%q, %v)", tt.ext, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFromPath(t *testing.T) {
	if l, ok := FromPath("src/utils/helpers.py"); !ok || l != LangPython {
		t.Errorf("FromPath = (%q, %v), want python", l, ok)
	}
	if _, ok := FromPath("README.md"); ok {
		t.Error("markdown should not map to a language")
	}
}
