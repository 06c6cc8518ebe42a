package repository

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/noah-isme/classroom-api/internal/models"
)

// Decoding is lenient per entry: anything that does not match the expected
// shape is dropped so a single corrupt record never hides the rest.

func decodeStudents(raw []byte) []models.Student {
	var entries []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &entries) != nil {
		return []models.Student{}
	}
	students := make([]models.Student, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		var student models.Student
		if err := json.Unmarshal(entry, &student); err != nil {
			continue
		}
		if strings.TrimSpace(student.ID) == "" {
			continue
		}
		if _, dup := seen[student.ID]; dup {
			continue
		}
		seen[student.ID] = struct{}{}
		students = append(students, student)
	}
	return students
}

func decodeResults(raw []byte) map[string][]models.ExamResult {
	var byStudent map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &byStudent) != nil {
		return map[string][]models.ExamResult{}
	}
	out := make(map[string][]models.ExamResult, len(byStudent))
	for studentID, blob := range byStudent {
		var entries []json.RawMessage
		if json.Unmarshal(blob, &entries) != nil {
			continue
		}
		results := make([]models.ExamResult, 0, len(entries))
		for _, entry := range entries {
			var result models.ExamResult
			if err := json.Unmarshal(entry, &result); err != nil {
				continue
			}
			if !validResult(result) {
				continue
			}
			results = append(results, result)
		}
		if len(results) > 0 {
			out[studentID] = results
		}
	}
	return out
}

func decodeProgress(raw []byte) map[string]models.CompletionSet {
	var byStudent map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &byStudent) != nil {
		return map[string]models.CompletionSet{}
	}
	out := make(map[string]models.CompletionSet, len(byStudent))
	for studentID, blob := range byStudent {
		var entries []json.RawMessage
		if json.Unmarshal(blob, &entries) != nil {
			continue
		}
		set := make(models.CompletionSet, len(entries))
		for _, entry := range entries {
			var id string
			if json.Unmarshal(entry, &id) != nil || id == "" {
				continue
			}
			set[id] = struct{}{}
		}
		out[studentID] = set
	}
	return out
}

func validResult(r models.ExamResult) bool {
	if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.ExamID) == "" {
		return false
	}
	if math.IsNaN(r.Score) || r.Score < models.MinExamScore || r.Score > models.MaxExamScore {
		return false
	}
	if math.IsNaN(r.Duration) || math.IsInf(r.Duration, 0) || r.Duration < 0 {
		return false
	}
	return r.Attempt >= 1
}
