package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	errs "plurkbackup/pkg/errors"
)

// Manager owns one user's archive directory. Whether an item was archived
// before is decided only by the presence of its file name.
type Manager struct {
	outputDir string
	dirMode   os.FileMode
	fileMode  os.FileMode

	appendMu sync.Mutex
	saved    atomic.Int64
}

// NewManager creates the directory if needed and returns its manager
func NewManager(outputDir string, dirMode, fileMode os.FileMode) (*Manager, error) {
	if dirMode == 0 {
		dirMode = 0755
	}
	if fileMode == 0 {
		fileMode = 0644
	}
	if err := os.MkdirAll(outputDir, dirMode); err != nil {
		return nil, errs.Filesystem("create output directory", err)
	}

	return &Manager{
		outputDir: outputDir,
		dirMode:   dirMode,
		fileMode:  fileMode,
	}, nil
}

// Path returns the absolute location of name inside the archive
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// Exists reports whether name is already present
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// Save writes r to name via a temporary file and an atomic rename, so an
// interrupted download never leaves a file that Exists would accept.
func (m *Manager) Save(r io.Reader, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	filename := m.Path(name)

	out, err := os.CreateTemp(m.outputDir, "."+name+".*.tmp")
	if err != nil {
		return errs.Filesystem("create temporary file", err)
	}
	tempFile := out.Name()

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return errs.Filesystem("close "+name, closeErr)
	}
	if err := os.Chmod(tempFile, m.fileMode); err != nil {
		os.Remove(tempFile)
		return errs.Filesystem("chmod "+name, err)
	}
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return errs.Filesystem("rename "+name, err)
	}

	m.saved.Add(1)
	return nil
}

// AppendText appends each line, newline-terminated, to the text file name
func (m *Manager) AppendText(name string, lines ...string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	m.appendMu.Lock()
	defer m.appendMu.Unlock()

	f, err := os.OpenFile(m.Path(name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, m.fileMode)
	if err != nil {
		return errs.Filesystem("open "+name, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return errs.Filesystem("append "+name, err)
	}
	return errs.Filesystem("close "+name, f.Close())
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// SavedCount returns the number of media files written by this manager
func (m *Manager) SavedCount() int {
	return int(m.saved.Load())
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return errs.New(errs.ErrorTypeValidation, "storage", fmt.Sprintf("invalid file name %q", name))
	}
	return nil
}
