package qconnect

import "gradeway-backend/lib/textutil"

// blockedDiagnostic is the fixed guidance shown when every strategy
// comes up empty; an empty page usually means the portal served its
// anti-automation interstitial instead of the gradebook.
const blockedDiagnostic = "no grade data was found; the portal may be blocking automated access. please retry, or log in manually to confirm your account works"

// mergeCourses unions records that share a (normalized) name. For each
// quarter slot the first non-empty letter wins, so merging records with
// disjoint slots loses nothing regardless of order; IsCurrent from any
// instance survives. Period and teacher keep the first non-empty value.
func mergeCourses(records []CourseRecord) []CourseRecord {
	if len(records) == 0 {
		return records
	}

	var order []string
	merged := map[string]*CourseRecord{}
	for _, record := range records {
		key := textutil.NormalizeName(record.Name)
		existing, ok := merged[key]
		if !ok {
			clone := record
			clone.Grades = append([]QuarterGrade(nil), record.Grades...)
			merged[key] = &clone
			order = append(order, key)
			continue
		}

		if existing.Period == "" {
			existing.Period = record.Period
		}
		if existing.Teacher == "" {
			existing.Teacher = record.Teacher
		}
		for i := range existing.Grades {
			if existing.Grades[i].Letter == "" {
				existing.Grades[i].Letter = record.Grades[i].Letter
			}
			if record.Grades[i].IsCurrent {
				existing.Grades[i].IsCurrent = true
			}
		}
	}

	out := make([]CourseRecord, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out
}

// Normalize turns raw strategy output into the stable result contract.
// Any course at all (even grade-less blocks from the fallback scan)
// counts as success; total emptiness is a non-exceptional failure with
// the fixed diagnostic.
func Normalize(out ExtractOutput) ScrapeResult {
	result := ScrapeResult{
		Courses:            out.Courses,
		MissingAssignments: extractMissingAssignments(),
		StudentName:        out.StudentName,
		School:             out.School,
	}
	if result.Courses == nil {
		result.Courses = []CourseRecord{}
	}

	if len(result.Courses) > 0 {
		result.Success = true
		return result
	}

	result.Error = blockedDiagnostic
	return result
}

func failure(message string, badCredentials bool) ScrapeResult {
	return ScrapeResult{
		Courses:            []CourseRecord{},
		MissingAssignments: []MissingAssignment{},
		Error:              message,
		BadCredentials:     badCredentials,
	}
}
