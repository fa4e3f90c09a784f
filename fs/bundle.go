package fs

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santiagomed/conjure/schema"
	"github.com/santiagomed/conjure/utils"
)

const (
	CodeFile   = "App.tsx"
	ReadmeFile = "README.md"
)

// Bundle lays out a saved generation as a small project in memory and returns the
// file system with the project directory name.
func Bundle(saved schema.SavedGeneration) (*FileSystem, string, error) {
	fs := NewMemoryFileSystem()
	dir := utils.FormatProjectName(saved.Title)

	if err := fs.WriteFile(filepath.Join(dir, CodeFile), saved.GeneratedApp.Code+"\n"); err != nil {
		return nil, "", err
	}
	if err := fs.WriteFile(filepath.Join(dir, ReadmeFile), Readme(saved)); err != nil {
		return nil, "", err
	}
	return fs, dir, nil
}

// Readme describes how the app was generated.
func Readme(saved schema.SavedGeneration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", saved.Title)
	if saved.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", saved.Description)
	}
	fmt.Fprintf(&b, "Generated with `%s` on %s.\n\n", saved.GeneratedApp.Model, saved.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "## Prompt\n\n%s\n", saved.GeneratedApp.Prompt)
	if a := saved.GeneratedApp.Analytics; a != nil {
		fmt.Fprintf(&b, "\n## Tokens\n\n| Prompt | Response | Total | Utilization |\n|---|---|---|---|\n| %d | %d | %d | %.2f%% |\n",
			a.PromptTokens, a.ResponseTokens, a.TotalTokens, a.UtilizationPercentage)
	}
	return b.String()
}
