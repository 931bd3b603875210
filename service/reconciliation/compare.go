package reconciliation

import "atlas-tracker-service/service/models"

// InfoEqual 逐字段比较校验负载
func InfoEqual(a, b models.ValidationInfo) bool {
	return a.EntityTitle == b.EntityTitle &&
		a.ValidationType == b.ValidationType &&
		a.System == b.System &&
		a.ValidationStatus == b.ValidationStatus &&
		a.TaskStatus == b.TaskStatus &&
		a.DOI == b.DOI &&
		sameStrings(a.DOIs, b.DOIs) &&
		a.PublicationString == b.PublicationString &&
		a.RelatedEntityURL == b.RelatedEntityURL &&
		a.Description == b.Description &&
		DifferencesEqual(a.Differences, b.Differences)
}

// sameStrings 按顺序比较字符串列表，nil 与空列表视为相同
func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DifferencesEqual 比较差异列表，nil 与空列表视为相同
func DifferencesEqual(a, b []models.Difference) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SameAtlasIDs 按集合比较图谱ID
func SameAtlasIDs(a, b []string) bool {
	setA := make(map[string]bool, len(a))
	for _, id := range a {
		setA[id] = true
	}
	setB := make(map[string]bool, len(b))
	for _, id := range b {
		setB[id] = true
	}
	if len(setA) != len(setB) {
		return false
	}
	for id := range setA {
		if !setB[id] {
			return false
		}
	}
	return true
}
