package storage

import (
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		path string
		base string
		rest string
	}{
		{"/Ring/2024/20240501_10_00_00_motion.mp4", "Ring", "2024/20240501_10_00_00_motion.mp4"},
		{"Ring", "Ring", ""},
		{"/Ring/", "Ring", ""},
		{"//Ring//Sheets/202405.xlsx", "Ring", "Sheets/202405.xlsx"},
		{"/", "", ""},
		{"", "", ""},
	}

	for _, test := range tests {
		base, rest := Split(test.path)
		if base != test.base || rest != test.rest {
			t.Errorf("Incorrect split for %q - expected:(%q,%q), got:(%q,%q)", test.path, test.base, test.rest, base, rest)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	tests := map[string]ConflictPolicy{
		"fail":     Fail,
		"Skip":     Skip,
		" replace": Replace,
	}

	for s, expected := range tests {
		if p, err := ParsePolicy(s); err != nil || p != expected {
			t.Errorf("Incorrect policy for %q - expected:%v, got:%v (%v)", s, expected, p, err)
		}
	}

	if _, err := ParsePolicy("rename"); err == nil {
		t.Errorf("Expected error for invalid policy")
	}
}

func TestItemPath(t *testing.T) {
	item := Item{Name: "20240501_10_00_00_motion.mp4", Parent: "/drive/root:/Ring/2024"}

	if p := item.Path(); p != "/drive/root:/Ring/2024/20240501_10_00_00_motion.mp4" {
		t.Errorf("Incorrect item path %v", p)
	}
}
