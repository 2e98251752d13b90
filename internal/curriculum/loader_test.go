package curriculum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

func TestLoader_LoadSyllabi(t *testing.T) {
	dir := setupTestCatalogue(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	syllabi := loader.AllSyllabi()
	if len(syllabi) != 2 {
		t.Fatalf("AllSyllabi() = %d, want 2", len(syllabi))
	}
	if syllabi[0].ID != "form1-math" || syllabi[1].ID != "form1-science" {
		t.Errorf("AllSyllabi() order = [%s %s], want sorted by id", syllabi[0].ID, syllabi[1].ID)
	}
}

func TestLoader_TopicsKeepDocumentOrder(t *testing.T) {
	dir := setupTestCatalogue(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	topics, ok := loader.Topics("form1-math")
	if !ok {
		t.Fatal("Topics(form1-math) not found")
	}
	want := []string{"F1-02", "F1-01", "F1-10"}
	if len(topics) != len(want) {
		t.Fatalf("len(topics) = %d, want %d", len(topics), len(want))
	}
	for i, id := range want {
		if topics[i].ID != id {
			t.Errorf("topics[%d].ID = %s, want %s", i, topics[i].ID, id)
		}
		if topics[i].SyllabusID != "form1-math" {
			t.Errorf("topics[%d].SyllabusID = %q", i, topics[i].SyllabusID)
		}
	}
	if topics[2].Subject != "Geometry" {
		t.Errorf("topics[2].Subject = %q, want Geometry", topics[2].Subject)
	}
}

func TestLoader_NormalizesTopics(t *testing.T) {
	dir := setupTestCatalogue(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	topic, found := loader.GetTopic("F1-02")
	if !found {
		t.Fatal("GetTopic(F1-02) not found")
	}
	if topic.Name != "Variables" {
		t.Errorf("Name = %q, want trimmed Variables", topic.Name)
	}
	if topic.Difficulty != curriculum.DifficultyHard {
		t.Errorf("Difficulty = %q, want hard", topic.Difficulty)
	}

	unknown, _ := loader.GetTopic("F1-10")
	if unknown.Difficulty != "expert" {
		t.Errorf("unknown difficulty = %q, want kept as expert", unknown.Difficulty)
	}
}

func TestLoader_GetSyllabus_NotFound(t *testing.T) {
	dir := setupTestCatalogue(t)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if _, found := loader.GetSyllabus("NONEXISTENT"); found {
		t.Error("GetSyllabus(NONEXISTENT) should not be found")
	}
	if _, found := loader.Topics("NONEXISTENT"); found {
		t.Error("Topics(NONEXISTENT) should not be found")
	}
}

func TestLoader_SkipsNonSyllabusYAML(t *testing.T) {
	dir := setupTestCatalogue(t)

	writeFile(t, filepath.Join(dir, "notes.yaml"), "title: not a syllabus\n")
	writeFile(t, filepath.Join(dir, "broken.yml"), "id: [unterminated\n")
	writeFile(t, filepath.Join(dir, "readme.md"), "# Catalogue\n")

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if got := len(loader.AllSyllabi()); got != 2 {
		t.Errorf("AllSyllabi() = %d, want 2", got)
	}
}

func TestLoader_SkipsTopicsWithoutID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "s.yaml"), `
id: s1
name: S1
subjects:
  - name: Math
    topics:
      - name: No id
      - id: T1
        name: Kept
`)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	topics, _ := loader.Topics("s1")
	if len(topics) != 1 || topics[0].ID != "T1" {
		t.Errorf("topics = %+v, want only T1", topics)
	}
}

func TestLoader_DuplicateSyllabusID(t *testing.T) {
	dir := t.TempDir()
	doc := "id: dup\nname: Dup\n"
	writeFile(t, filepath.Join(dir, "a.yaml"), doc)
	writeFile(t, filepath.Join(dir, "b.yaml"), doc)

	if _, err := curriculum.NewLoader(dir); err == nil {
		t.Fatal("expected error for duplicate syllabus id")
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	loader, err := curriculum.NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if got := len(loader.AllSyllabi()); got != 0 {
		t.Errorf("AllSyllabi() = %d, want 0 for empty dir", got)
	}
}

func TestLoader_MissingDir(t *testing.T) {
	if _, err := curriculum.NewLoader(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func setupTestCatalogue(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "malaysia", "kssm", "form1-math.yaml"), `
id: form1-math
name: "Form 1 Mathematics"
class: Form 1
subjects:
  - name: Algebra
    topics:
      - id: F1-02
        name: "  Variables  "
        difficulty: Hard
      - id: F1-01
        name: Numbers
        difficulty: easy
  - name: Geometry
    topics:
      - id: F1-10
        name: Angles
        difficulty: expert
`)

	writeFile(t, filepath.Join(dir, "malaysia", "kssm", "form1-science.yml"), `
id: form1-science
name: "Form 1 Science"
class: Form 1
subjects:
  - name: Biology
    topics:
      - id: S1-01
        name: Cells
        difficulty: medium
`)

	return dir
}
