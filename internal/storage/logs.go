package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogStorage keeps one build log file per executed step.
type LogStorage struct {
	BaseDir string
	now     func() time.Time
}

func NewLogStorage(baseDir string) *LogStorage {
	return &LogStorage{BaseDir: baseDir, now: time.Now}
}

// SaveLog writes output for the step at position index and returns the path.
// name is usually the step summary and only used to make the file name readable.
func (ls *LogStorage) SaveLog(index int, name, output string) (string, error) {
	if err := os.MkdirAll(ls.BaseDir, 0775); err != nil {
		return "", err
	}

	timestamp := ls.now().Format("20060102_150405")
	filename := fmt.Sprintf("%03d_%s_%s.log", index, sanitize(name), timestamp)
	path := filepath.Join(ls.BaseDir, filename)

	if err := os.WriteFile(path, []byte(output), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// sanitize keeps letters, digits, '-' and '_' so names are safe in file names.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "step"
	}
	return b.String()
}
