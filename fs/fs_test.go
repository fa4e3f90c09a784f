package fs

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/santiagomed/conjure/schema"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryFileSystem(t *testing.T) {
	fs := NewMemoryFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.MemMapFs{}, fs.Fs)
}

func TestNewOsFileSystem(t *testing.T) {
	fs := NewOsFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.OsFs{}, fs.Fs)
}

func TestWriteFile(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.WriteFile("test/file.txt", "Hello, World!")
	assert.NoError(t, err)

	content, err := afero.ReadFile(fs.Fs, "test/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(content))
	assert.True(t, fs.IsDir("test"))
	assert.False(t, fs.IsDir("test/nonexistent"))
}

func TestWriteZip(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("calc/App.tsx", "code"))
	require.NoError(t, fs.WriteFile("calc/README.md", "# Calc"))

	var buf bytes.Buffer
	require.NoError(t, fs.WriteZip(&buf, "calc"))

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		if f.Name == "calc/App.tsx" {
			rc, err := f.Open()
			require.NoError(t, err)
			content, _ := io.ReadAll(rc)
			rc.Close()
			assert.Equal(t, "code", string(content))
		}
	}
	sort.Strings(names)
	assert.Equal(t, []string{"calc/App.tsx", "calc/README.md"}, names)

	empty := NewMemoryFileSystem()
	require.NoError(t, empty.Fs.MkdirAll("nothing", 0755))
	assert.Error(t, empty.WriteZip(io.Discard, "nothing"))
}

func TestListFiles(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.WriteFile("test/file.txt", "Hello, World!")
	assert.NoError(t, err)

	require.NoError(t, fs.WriteFile("test/b/inner.txt", "x"))
	require.NoError(t, fs.WriteFile("test/a.txt", "x"))

	tree, err := fs.ListFiles("test")
	require.NoError(t, err)
	assert.Equal(t, &Node{Name: "test", Dir: true, Children: []*Node{
		{Name: "a.txt"},
		{Name: "b", Dir: true, Children: []*Node{{Name: "inner.txt"}}},
		{Name: "file.txt"},
	}}, tree)

	_, err = fs.ListFiles("test/a.txt")
	assert.ErrorContains(t, err, "not a directory")
}

func savedCalculator() schema.SavedGeneration {
	return schema.SavedGeneration{
		ID:          "s-1",
		Title:       "My Calculator",
		Description: "Four functions",
		CreatedAt:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		GeneratedApp: schema.GeneratedApp{
			ID:     "app-1",
			Code:   "export default function App(){...}",
			Model:  "gpt-4o",
			Prompt: "Build me a calculator app",
			Analytics: &schema.TokenAnalytics{
				PromptTokens: 7, ResponseTokens: 10, TotalTokens: 17, UtilizationPercentage: 0.01,
			},
		},
	}
}

func TestBundle(t *testing.T) {
	fs, dir, err := Bundle(savedCalculator())
	require.NoError(t, err)
	assert.Equal(t, "my-calculator", dir)

	tree, err := fs.ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []*Node{{Name: CodeFile}, {Name: ReadmeFile}}, tree.Children)

	readme, err := afero.ReadFile(fs.Fs, filepath.Join(dir, ReadmeFile))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# My Calculator")
	assert.Contains(t, string(readme), "Generated with `gpt-4o` on 2025-03-01.")
	assert.Contains(t, string(readme), "Build me a calculator app")
	assert.Contains(t, string(readme), "| 7 | 10 | 17 | 0.01% |")
}

func TestCopyTo(t *testing.T) {
	src, dir, err := Bundle(savedCalculator())
	require.NoError(t, err)
	dst := NewMemoryFileSystem()

	require.NoError(t, src.CopyTo(dst, dir, "out/my-calculator"))
	content, err := afero.ReadFile(dst.Fs, "out/my-calculator/App.tsx")
	require.NoError(t, err)
	assert.Equal(t, "export default function App(){...}\n", string(content))

	assert.Error(t, src.CopyTo(dst, dir, "out/my-calculator"))
}

func TestExtractZip(t *testing.T) {
	src, dir, err := Bundle(savedCalculator())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, src.WriteZip(&buf, dir))

	dst := NewMemoryFileSystem()
	r := bytes.NewReader(buf.Bytes())
	roots, err := dst.ExtractZip(r, r.Size(), "out")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("out", "my-calculator")}, roots)
	content, err := afero.ReadFile(dst.Fs, "out/my-calculator/App.tsx")
	require.NoError(t, err)
	assert.Equal(t, "export default function App(){...}\n", string(content))

	_, err = dst.ExtractZip(r, r.Size(), "out")
	assert.ErrorContains(t, err, "already exists")
}

func TestExtractZip_RejectsEscapingPaths(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../evil.txt")
	require.NoError(t, err)
	w.Write([]byte("x"))
	require.NoError(t, zw.Close())

	dst := NewMemoryFileSystem()
	r := bytes.NewReader(buf.Bytes())
	_, err = dst.ExtractZip(r, r.Size(), "out")
	assert.ErrorContains(t, err, "invalid file path")
	exists, _ := afero.Exists(dst.Fs, "evil.txt")
	assert.False(t, exists)
}
