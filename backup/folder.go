package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// timestampLayout is the suffix of every backup file name.
const timestampLayout = "20060102150405"

// ForeverFrequency is the backup frequency setting that disables pruning.
const ForeverFrequency = 13

// RetentionWindow maps the backup frequency setting (0..13) to a retention
// period: 0 keeps one month, each step adds a month, 13 keeps everything.
func RetentionWindow(frequency int) (months int, forever bool) {
	if frequency >= ForeverFrequency {
		return 0, true
	}
	if frequency < 0 {
		frequency = 0
	}
	return frequency + 1, false
}

// File is a backup stored in a Folder.
type File struct {
	Path     string
	NeuronID string
	Taken    time.Time
}

// Folder is the directory backups are written to. File names have the form
// <neuronID>-<YYYYMMDDhhmmss>.json.
type Folder struct {
	Dir string
}

// Save writes p for neuronID and returns the file path.
func (f Folder) Save(neuronID string, p *Payload, now time.Time) (string, error) {
	if f.Dir == "" {
		return "", fmt.Errorf("backup folder is not configured")
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup folder: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", sanitizeID(neuronID), now.UTC().Format(timestampLayout))
	path := filepath.Join(f.Dir, name)

	tmp, err := os.CreateTemp(f.Dir, ".backup-*")
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Write(tmp, p); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store backup: %w", err)
	}
	return path, nil
}

// List returns the backups of neuronID, oldest first. An empty neuronID lists
// every backup. Files that do not follow the naming scheme are ignored.
func (f Folder) List(neuronID string) ([]File, error) {
	dirEntries, err := os.ReadDir(f.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup folder: %w", err)
	}

	want := sanitizeID(neuronID)
	var files []File
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		file, ok := parseFileName(de.Name())
		if !ok {
			continue
		}
		if neuronID != "" && file.NeuronID != want {
			continue
		}
		file.Path = filepath.Join(f.Dir, de.Name())
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Taken.Before(files[j].Taken)
	})
	return files, nil
}

// Latest returns the newest backup of neuronID.
func (f Folder) Latest(neuronID string) (File, error) {
	files, err := f.List(neuronID)
	if err != nil {
		return File{}, err
	}
	if len(files) == 0 {
		return File{}, fmt.Errorf("no backups for neuron %q in %s", neuronID, f.Dir)
	}
	return files[len(files)-1], nil
}

// Prune removes backups older than the retention window for frequency and
// returns what it removed. The newest backup of each neuron is always kept.
func (f Folder) Prune(now time.Time, frequency int) ([]File, error) {
	months, forever := RetentionWindow(frequency)
	if forever {
		return nil, nil
	}
	cutoff := now.AddDate(0, -months, 0)

	files, err := f.List("")
	if err != nil {
		return nil, err
	}

	newest := make(map[string]time.Time)
	for _, file := range files {
		if file.Taken.After(newest[file.NeuronID]) {
			newest[file.NeuronID] = file.Taken
		}
	}

	var removed []File
	for _, file := range files {
		if !file.Taken.Before(cutoff) || file.Taken.Equal(newest[file.NeuronID]) {
			continue
		}
		if err := os.Remove(file.Path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", filepath.Base(file.Path), err)
		}
		removed = append(removed, file)
	}
	return removed, nil
}

func parseFileName(name string) (File, bool) {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return File{}, false
	}
	i := strings.LastIndex(base, "-")
	if i <= 0 {
		return File{}, false
	}
	taken, err := time.Parse(timestampLayout, base[i+1:])
	if err != nil {
		return File{}, false
	}
	return File{NeuronID: base[:i], Taken: taken}, true
}

func sanitizeID(id string) string {
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, id)
}
