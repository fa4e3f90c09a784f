package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "make it\n\tblue", SanitizeInput("  make\x00 it\n\tblue\x1b "))
}

func TestFormatProjectName(t *testing.T) {
	tests := map[string]string{
		"My Calculator":      "my-calculator",
		"  Todo -- App!! ":   "todo-app",
		"2048 clone":         "app-2048-clone",
		"???":                "conjure-app",
		"already_snake_case": "already_snake_case",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatProjectName(in), in)
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "a long...", TruncateString("a long sentence", 9))
	assert.Equal(t, "h...", TruncateString("héllo", 4))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "second", FirstLine("\n  \n second \nthird"))
	assert.Equal(t, "", FirstLine(""))
}
