package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
)

const sampleCatalog = `
units:
  - id: u1
    title: Environnement informatique
    sub_units:
      - id: s1
        title: Le matériel
      - id: s2
        title: Les logiciels
  - id: u2
    title: Algorithmique
    sub_units:
      - id: s1
        title: Variables
exams:
  - id: exam-1
    title: Examen 1
    question_count: 10
  - id: exam-2
    title: Examen 2
`

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	cat, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cat.TotalLeaves())
	assert.True(t, cat.HasLeaf("u1/s2"))
	assert.True(t, cat.HasLeaf("u2/s1"))
	assert.False(t, cat.HasLeaf("s1"))
	exam, ok := cat.Exam("exam-1")
	require.True(t, ok)
	assert.Equal(t, "Examen 1", exam.Title)
	assert.Equal(t, 10, exam.QuestionCount)
	assert.Len(t, cat.Units(), 2)
	assert.Equal(t, "u1", cat.Units()[0].ID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewSkipsBlanksAndDuplicates(t *testing.T) {
	cat := New([]models.Unit{
		{ID: "u1", SubUnits: []models.SubUnit{{ID: "s1"}, {ID: "s1"}, {ID: ""}}},
		{ID: "", SubUnits: []models.SubUnit{{ID: "s9"}}},
	}, []models.Exam{{ID: "e1", Title: "first"}, {ID: "e1", Title: "second"}, {ID: ""}})

	assert.Equal(t, 1, cat.TotalLeaves())
	assert.Len(t, cat.Exams(), 1)
	exam, _ := cat.Exam("e1")
	assert.Equal(t, "first", exam.Title)
}

func TestEmptyCatalog(t *testing.T) {
	cat := Empty()

	assert.Equal(t, 0, cat.TotalLeaves())
	assert.False(t, cat.HasExams())
}
