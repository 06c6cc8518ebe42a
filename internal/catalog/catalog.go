// Package catalog exposes the read-only curriculum and exam catalog.
package catalog

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/noah-isme/classroom-api/internal/models"
)

// Catalog is immutable after construction and safe for concurrent readers.
type Catalog struct {
	units  []models.Unit
	exams  []models.Exam
	leaves map[string]struct{}
	byExam map[string]models.Exam
}

type document struct {
	Units []models.Unit `mapstructure:"units"`
	Exams []models.Exam `mapstructure:"exams"`
}

// New indexes units and exams. Blank ids are skipped and duplicates keep their first occurrence.
func New(units []models.Unit, exams []models.Exam) *Catalog {
	c := &Catalog{
		leaves: make(map[string]struct{}),
		byExam: make(map[string]models.Exam),
	}
	for _, unit := range units {
		if strings.TrimSpace(unit.ID) == "" {
			continue
		}
		kept := unit
		kept.SubUnits = make([]models.SubUnit, 0, len(unit.SubUnits))
		for _, sub := range unit.SubUnits {
			if strings.TrimSpace(sub.ID) == "" {
				continue
			}
			leaf := unit.LeafID(sub)
			if _, dup := c.leaves[leaf]; dup {
				continue
			}
			c.leaves[leaf] = struct{}{}
			kept.SubUnits = append(kept.SubUnits, sub)
		}
		c.units = append(c.units, kept)
	}
	for _, exam := range exams {
		if strings.TrimSpace(exam.ID) == "" {
			continue
		}
		if _, dup := c.byExam[exam.ID]; dup {
			continue
		}
		c.byExam[exam.ID] = exam
		c.exams = append(c.exams, exam)
	}
	return c
}

// Empty returns a catalog with no units or exams. Its gate never opens.
func Empty() *Catalog {
	return New(nil, nil)
}

// Load reads a yaml or json catalog file.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var doc document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return New(doc.Units, doc.Exams), nil
}

// Units returns units in catalog order.
func (c *Catalog) Units() []models.Unit {
	out := make([]models.Unit, len(c.units))
	copy(out, c.units)
	return out
}

// Exams returns exam metadata in catalog order.
func (c *Catalog) Exams() []models.Exam {
	out := make([]models.Exam, len(c.exams))
	copy(out, c.exams)
	return out
}

// Exam looks up exam metadata by id.
func (c *Catalog) Exam(id string) (models.Exam, bool) {
	exam, ok := c.byExam[id]
	return exam, ok
}

// HasExams reports whether any exam metadata was loaded.
func (c *Catalog) HasExams() bool {
	return len(c.exams) > 0
}

// TotalLeaves counts every completable leaf across all units.
func (c *Catalog) TotalLeaves() int {
	return len(c.leaves)
}

// HasLeaf reports whether id is a known leaf.
func (c *Catalog) HasLeaf(id string) bool {
	_, ok := c.leaves[id]
	return ok
}

// Leaves returns the leaf index. Callers must not modify it.
func (c *Catalog) Leaves() map[string]struct{} {
	return c.leaves
}
