package fs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileSystem wraps the Afero Fs interface
type FileSystem struct {
	Fs afero.Fs
}

// NewMemoryFileSystem creates a new in-memory file system
func NewMemoryFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewMemMapFs(),
	}
}

// NewOsFileSystem creates a new OS-based file system
func NewOsFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewOsFs(),
	}
}

// WriteFile writes content to path, creating parent directories as needed.
func (fs *FileSystem) WriteFile(path string, content string) error {
	dir := filepath.Dir(path)
	if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	err := afero.WriteFile(fs.Fs, path, []byte(content), 0644)
	if err != nil {
		return fmt.Errorf("error writing file %s: %w", path, err)
	}
	return nil
}

// IsDir checks if a path is a directory
func (fs *FileSystem) IsDir(path string) bool {
	info, err := fs.Fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// WriteZip writes every file under root to w as a zip archive.
func (fs *FileSystem) WriteZip(w io.Writer, root string) error {
	zipWriter := zip.NewWriter(w)

	fileCount := 0
	err := afero.Walk(fs.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		zipPath := filepath.ToSlash(path)
		if info.IsDir() {
			if _, err := zipWriter.Create(zipPath + "/"); err != nil {
				return fmt.Errorf("error creating zip entry for directory %s: %w", zipPath, err)
			}
			return nil
		}

		writer, err := zipWriter.Create(zipPath)
		if err != nil {
			return fmt.Errorf("error creating zip entry for file %s: %w", zipPath, err)
		}

		file, err := fs.Fs.Open(path)
		if err != nil {
			return fmt.Errorf("error opening file %s: %w", path, err)
		}
		defer file.Close()

		if _, err := io.Copy(writer, file); err != nil {
			return fmt.Errorf("error writing file %s to zip: %w", path, err)
		}
		fileCount++
		return nil
	})
	if err != nil {
		return fmt.Errorf("error walking file system: %w", err)
	}
	if fileCount == 0 {
		return fmt.Errorf("no files to zip")
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("error closing zip writer: %w", err)
	}
	return nil
}

// CopyTo copies every file under root into dst below dstDir, refusing to overwrite files.
func (fs *FileSystem) CopyTo(dst *FileSystem, root, dstDir string) error {
	return afero.Walk(fs.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)
		if info.IsDir() {
			return dst.Fs.MkdirAll(target, 0755)
		}

		if exists, _ := afero.Exists(dst.Fs, target); exists {
			return fmt.Errorf("file %s already exists", target)
		}
		content, err := afero.ReadFile(fs.Fs, path)
		if err != nil {
			return fmt.Errorf("error reading file %s: %w", path, err)
		}
		return dst.WriteFile(target, string(content))
	})
}

// Node is one entry of a listed directory tree. Files have no children.
type Node struct {
	Name     string
	Dir      bool
	Children []*Node
}

// ListFiles returns the tree below root, entries sorted by name.
func (fs *FileSystem) ListFiles(root string) (*Node, error) {
	if !fs.IsDir(root) {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return fs.listDir(root, filepath.Base(root))
}

func (fs *FileSystem) listDir(path, name string) (*Node, error) {
	entries, err := afero.ReadDir(fs.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %s: %w", path, err)
	}
	node := &Node{Name: name, Dir: true}
	for _, e := range entries {
		if !e.IsDir() {
			node.Children = append(node.Children, &Node{Name: e.Name()})
			continue
		}
		child, err := fs.listDir(filepath.Join(path, e.Name()), e.Name())
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// ExtractZip unpacks the archive into dstDir and returns the top-level paths it created.
// Entries escaping dstDir and existing files are rejected.
func (fs *FileSystem) ExtractZip(r io.ReaderAt, size int64, dstDir string) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("error opening zip: %w", err)
	}

	dstDir = filepath.Clean(dstDir)
	var roots []string
	seen := make(map[string]bool)
	for _, f := range zr.File {
		target := filepath.Join(dstDir, filepath.FromSlash(f.Name))
		rel, err := filepath.Rel(dstDir, target)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return nil, fmt.Errorf("invalid file path: %s", f.Name)
		}
		top := filepath.Join(dstDir, strings.SplitN(rel, string(os.PathSeparator), 2)[0])
		if !seen[top] {
			seen[top] = true
			roots = append(roots, top)
		}

		if f.FileInfo().IsDir() {
			if err := fs.Fs.MkdirAll(target, 0755); err != nil {
				return nil, err
			}
			continue
		}
		if exists, _ := afero.Exists(fs.Fs, target); exists {
			return nil, fmt.Errorf("file %s already exists", target)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening zip entry %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading zip entry %s: %w", f.Name, err)
		}
		if err := fs.WriteFile(target, string(content)); err != nil {
			return nil, err
		}
	}
	return roots, nil
}
