package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/santiagomed/conjure/fs"
)

type progressMsg float64

type progressErrMsg struct{ err error }

type downloadCompleteMsg struct{}

const (
	downloading = iota
	prompting
)

const (
	padding  = 2
	maxWidth = 80
)

// downloadCmdModel shows the download progress of a saved generation and then asks where to
// extract it.
type downloadCmdModel struct {
	pw        *progressWriter
	progress  progress.Model
	path      string
	textinput textinput.Model
	state     int
	dst       *fs.FileSystem
	extracted string
	err       error
}

func newDownloadCmdModel(pw *progressWriter, path string, dst *fs.FileSystem) downloadCmdModel {
	ti := textinput.New()
	ti.Placeholder = "."
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	return downloadCmdModel{
		pw:        pw,
		progress:  progress.New(progress.WithGradient("#FFBA08", "#F48C06")),
		textinput: ti,
		path:      path,
		state:     downloading,
		dst:       dst,
	}
}

func (m downloadCmdModel) Init() tea.Cmd {
	return nil
}

func (m downloadCmdModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEscape || msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter && m.state == prompting {
			dir := strings.TrimSpace(m.textinput.Value())
			if dir == "" {
				dir = "."
			}
			return m.handleExtract(dir)
		}
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}
		return m, nil

	case progressErrMsg:
		m.err = msg.err
		return m, tea.Quit

	case progressMsg:
		var cmds []tea.Cmd
		if msg >= 1.0 {
			cmds = append(cmds, tea.Sequence(finalPause(), func() tea.Msg {
				return downloadCompleteMsg{}
			}))
		}
		cmds = append(cmds, m.progress.SetPercent(float64(msg)))
		return m, tea.Batch(cmds...)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case downloadCompleteMsg:
		m.state = prompting
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.textinput, cmd = m.textinput.Update(msg)
	return m, cmd
}

func (m downloadCmdModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}
	if m.extracted != "" {
		return ""
	}
	if m.state == prompting {
		return fmt.Sprintf("\nExtract into directory: %s\n", m.textinput.View())
	}
	pad := strings.Repeat(" ", padding)
	return "\n" +
		pad + m.progress.View() + "\n\n" +
		pad + helpStyle("Press esc to quit")
}

func finalPause() tea.Cmd {
	return tea.Tick(time.Millisecond*750, func(_ time.Time) tea.Msg {
		return nil
	})
}

func (m downloadCmdModel) handleExtract(dir string) (tea.Model, tea.Cmd) {
	roots, err := extractFile(m.dst, m.path, dir)
	if err != nil {
		m.err = err
		return m, tea.Quit
	}
	m.extracted = dir
	check := checkStyle.Render("✓")
	cmds := []tea.Cmd{tea.Printf("%s Generation extracted into %s", check, nameStyle.Render(dir))}
	for _, root := range roots {
		if listing, err := fileTree(m.dst, root); err == nil {
			cmds = append(cmds, tea.Println(listing))
		}
	}
	return m, tea.Sequence(append(cmds, tea.Quit)...)
}

// extractFile unpacks the zip at path into dir on dst and returns the top-level paths created.
func extractFile(dst *fs.FileSystem, path, dir string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return dst.ExtractZip(f, info.Size(), dir)
}

type progressWriter struct {
	total      int64
	downloaded int64
	file       io.Writer
	reader     io.Reader
	onProgress func(float64)
}

func (pw *progressWriter) Start(p *tea.Program) {
	// TeeReader calls pw.Write() each time a new response is received
	if _, err := io.Copy(pw.file, io.TeeReader(pw.reader, pw)); err != nil {
		p.Send(progressErrMsg{err})
		return
	}
	p.Send(progressMsg(1.0))
}

// Write reports progress below 1.0. Completion is only sent by Start once the file is written.
func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.downloaded += int64(len(p))
	if pw.total > 0 && pw.onProgress != nil {
		pw.onProgress(min(float64(pw.downloaded)/float64(pw.total), 0.99))
	}
	return len(p), nil
}
