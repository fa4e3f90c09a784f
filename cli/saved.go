package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/santiagomed/conjure/client"
	"github.com/santiagomed/conjure/fs"
	"github.com/santiagomed/conjure/schema"
	"github.com/santiagomed/conjure/utils"
)

// SavedClient is the part of the backend client the saved commands use.
type SavedClient interface {
	ListSaved(ctx context.Context) ([]schema.SavedGeneration, error)
	GetSaved(ctx context.Context, id string) (*schema.SavedGeneration, error)
	DeleteSaved(ctx context.Context, id string) error
	DownloadSaved(ctx context.Context, id string) (*client.Download, error)
}

func listSaved(ctx context.Context, c SavedClient, w io.Writer) error {
	saved, err := c.ListSaved(ctx)
	if err != nil {
		return fmt.Errorf("error listing saved generations: %w", err)
	}
	if len(saved) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No saved generations."))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "TITLE", "MODEL", "TOKENS", "CREATED")
	for _, s := range saved {
		tokens := "-"
		if a := s.GeneratedApp.Analytics; a != nil {
			tokens = fmt.Sprintf("%d", a.TotalTokens)
		}
		t.Row(s.ID, utils.TruncateString(s.Title, 40), s.GeneratedApp.Model, tokens, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w, t.Render())
	return nil
}

func showSaved(ctx context.Context, c SavedClient, id string, w io.Writer) error {
	s, err := c.GetSaved(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting saved generation %s: %w", id, err)
	}
	fmt.Fprintln(w, titleStyle.Render(s.Title))
	if s.Description != "" {
		fmt.Fprintln(w, s.Description)
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%s • %s • app %s", s.GeneratedApp.Model, s.CreatedAt.Format("2006-01-02 15:04"), s.GeneratedApp.ID)))
	fmt.Fprintf(w, "\nPrompt: %s\n", utils.FirstLine(s.GeneratedApp.Prompt))
	if a := s.GeneratedApp.Analytics; a != nil {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("tokens: %d prompt / %d response / %d total (%.2f%%)",
			a.PromptTokens, a.ResponseTokens, a.TotalTokens, a.UtilizationPercentage)))
	}
	fmt.Fprintln(w, renderCode(s.GeneratedApp.Code))
	return nil
}

func deleteSaved(ctx context.Context, c SavedClient, id string, w io.Writer) error {
	if err := c.DeleteSaved(ctx, id); err != nil {
		return fmt.Errorf("error deleting saved generation %s: %w", id, err)
	}
	fmt.Fprintf(w, "%s Deleted %s\n", checkStyle.Render("✓"), id)
	return nil
}

// exportSaved writes the saved generation as a project directory below dir and returns its path.
func exportSaved(ctx context.Context, c SavedClient, id string, dst *fs.FileSystem, dir string) (string, error) {
	s, err := c.GetSaved(ctx, id)
	if err != nil {
		return "", fmt.Errorf("error getting saved generation %s: %w", id, err)
	}
	bundle, name, err := fs.Bundle(*s)
	if err != nil {
		return "", fmt.Errorf("error bundling saved generation: %w", err)
	}
	target := filepath.Join(dir, name)
	if dst.IsDir(target) {
		return "", fmt.Errorf("directory %s already exists", target)
	}
	if err := bundle.CopyTo(dst, name, target); err != nil {
		return "", fmt.Errorf("error exporting to %s: %w", target, err)
	}
	return target, nil
}

// fileTree renders the directory tree below root.
func fileTree(fsys *fs.FileSystem, root string) (string, error) {
	node, err := fsys.ListFiles(root)
	if err != nil {
		return "", err
	}
	t := buildTree(node)
	t.Root(nameStyle.Render(root))
	return t.String(), nil
}

func buildTree(n *fs.Node) *tree.Tree {
	t := tree.Root(n.Name).EnumeratorStyle(dimStyle)
	for _, c := range n.Children {
		if c.Dir {
			t.Child(buildTree(c))
			continue
		}
		t.Child(c.Name)
	}
	return t
}

func savedID(args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("a saved generation id is required")
	}
	return strings.TrimSpace(args[0]), nil
}
