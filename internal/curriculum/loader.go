package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader loads and caches syllabus catalogue files from the filesystem.
// It is the read-only topic source for plans built from catalogued syllabi.
type Loader struct {
	rootDir string
	syllabi map[string]Syllabus
	topics  map[string]Topic
	mu      sync.RWMutex
}

// NewLoader creates a new syllabus loader and loads all content.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		syllabi: make(map[string]Syllabus),
		topics:  make(map[string]Topic),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading syllabi: %w", err)
	}

	slog.Info("syllabus catalogue loaded", "syllabi", len(l.syllabi), "topics", len(l.topics))
	return l, nil
}

// GetSyllabus returns a syllabus by ID.
func (l *Loader) GetSyllabus(id string) (Syllabus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.syllabi[id]
	return s, ok
}

// GetTopic returns a topic by ID.
func (l *Loader) GetTopic(id string) (Topic, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.topics[id]
	return t, ok
}

// Topics returns the ordered topics of a syllabus.
func (l *Loader) Topics(syllabusID string) ([]Topic, bool) {
	s, ok := l.GetSyllabus(syllabusID)
	if !ok {
		return nil, false
	}
	return s.Topics(), true
}

// AllSyllabi returns all loaded syllabi sorted by ID.
func (l *Loader) AllSyllabi() []Syllabus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Syllabus, 0, len(l.syllabi))
	for _, s := range l.syllabi {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadSyllabus(path)
		}
		return nil
	})
}

func (l *Loader) loadSyllabus(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var syl Syllabus
	if err := yaml.Unmarshal(data, &syl); err != nil {
		slog.Warn("skipping invalid syllabus YAML", "path", path, "error", err)
		return nil
	}

	if syl.ID == "" {
		return nil // Not a syllabus file
	}

	syl.Name = cleanName(syl.Name)
	for i := range syl.Subjects {
		subj := &syl.Subjects[i]
		subj.Name = cleanName(subj.Name)
		kept := subj.Topics[:0]
		for _, t := range subj.Topics {
			if t.ID == "" {
				slog.Warn("skipping topic without id", "path", path, "subject", subj.Name)
				continue
			}
			t.Name = cleanName(t.Name)
			t.Difficulty = t.Difficulty.Normalize()
			kept = append(kept, t)
		}
		subj.Topics = kept
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.syllabi[syl.ID]; dup {
		return fmt.Errorf("duplicate syllabus id %q in %s", syl.ID, path)
	}
	l.syllabi[syl.ID] = syl
	for _, t := range syl.Topics() {
		l.topics[t.ID] = t
	}

	return nil
}
