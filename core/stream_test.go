package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns one chunk per Read call.
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"language tag", "```tsx\nconst a = 1;\n```", "const a = 1;"},
		{"no tag", "```\nconst a = 1;\n```", "const a = 1;"},
		{"no fences", "  const a = 1;\n", "const a = 1;"},
		{"open fence only", "```jsx\nconst a", "const a"},
		{"surrounding whitespace", "\n\n```ts\nx\n```\n\n", "x"},
		{"surrounding prose", "Here is your app:\n```tsx\nconst a = 1;\n```\nEnjoy!", "const a = 1;"},
		{"opening line incomplete", "Sure:\n```ts", ""},
		{"partial closing fence", "```ts\nx\n``", "x"},
		{"first block wins", "```\na\n```\n```\nb\n```", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripFences(tt.input))
		})
	}
}

func TestReadStream_AnySplitYieldsInnerContent(t *testing.T) {
	inner := "export default function App() {\n  return <div>Hi</div>;\n}"
	full := "```tsx\n" + inner + "\n```"

	for i := 0; i <= len(full); i++ {
		for j := i; j <= len(full); j += 7 {
			r := &chunkReader{chunks: []string{full[:i], full[i:j], full[j:]}}
			got, err := ReadStream(context.Background(), r, true, nil)
			require.NoError(t, err)
			assert.Equal(t, inner, got, "split at %d/%d", i, j)
		}
	}
}

func TestReadStream_ProseAroundBlock(t *testing.T) {
	inner := "export default function App(){}"
	full := "Here is your app:\n```tsx\n" + inner + "\n```\nLet me know if you need changes."

	for i := 0; i <= len(full); i++ {
		r := &chunkReader{chunks: []string{full[:i], full[i:]}}
		got, err := ReadStream(context.Background(), r, true, nil)
		require.NoError(t, err)
		assert.Equal(t, inner, got, "split at %d", i)
	}
}

func TestReadStream_CalculatorChunks(t *testing.T) {
	r := &chunkReader{chunks: []string{"```tsx\nexport default function App(){", "...}\n```"}}
	var displays []string
	got, err := ReadStream(context.Background(), r, true, func(display string) {
		displays = append(displays, display)
	})
	require.NoError(t, err)
	assert.Equal(t, "export default function App(){...}", got)
	assert.Equal(t, []string{"export default function App(){", "export default function App(){...}"}, displays)
}

func TestReadStream_NoStripTrims(t *testing.T) {
	r := &chunkReader{chunks: []string{"  A todo app ", "with ```tags```\n"}}
	got, err := ReadStream(context.Background(), r, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "A todo app with ```tags```", got)
}

func TestReadStream_Errors(t *testing.T) {
	_, err := ReadStream(context.Background(), nil, true, nil)
	assert.EqualError(t, err, "no response body")

	r := &chunkReader{chunks: []string{"partial"}, err: errors.New("connection reset")}
	got, err := ReadStream(context.Background(), r, true, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "partial", got)
}

func TestReadStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadStream(ctx, strings.NewReader("never read"), true, func(string) {
		t.Fatal("no chunk expected after cancellation")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
