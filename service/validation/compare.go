package validation

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TitleMatch 标题比较结果
type TitleMatch int

const (
	TitleMismatch TitleMatch = iota
	TitleNearMatch
	TitleExactMatch
)

// NormalizeText 规范化文本：NFKD 分解、去除组合符号、大小写折叠、压缩空白
func NormalizeText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	result = cases.Fold().String(result)
	return strings.Join(strings.FieldsFunc(result, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '-')
	}), " ")
}

// Similarity 基于编辑距离的相似度，取值 [0, 1]
func Similarity(a, b string) float64 {
	a, b = NormalizeText(a), NormalizeText(b)
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}

// CompareTitles 比较两个标题；threshold 为近似匹配的最小相似度
func CompareTitles(expected, actual string, threshold float64) TitleMatch {
	if NormalizeText(expected) == NormalizeText(actual) {
		return TitleExactMatch
	}
	if Similarity(expected, actual) >= threshold {
		return TitleNearMatch
	}
	return TitleMismatch
}

// SetDifference 双向集合差：missing 为 expected 中有而 actual 中没有的值，extra 反之
// 比较时忽略大小写与空白差异，返回值保持原始写法并排序
func SetDifference(expected, actual []string) (missing, extra []string) {
	expectedKeys := make(map[string]bool, len(expected))
	for _, v := range expected {
		expectedKeys[NormalizeText(v)] = true
	}
	actualKeys := make(map[string]bool, len(actual))
	for _, v := range actual {
		actualKeys[NormalizeText(v)] = true
	}

	seen := make(map[string]bool)
	for _, v := range expected {
		key := NormalizeText(v)
		if !actualKeys[key] && !seen[key] {
			seen[key] = true
			missing = append(missing, v)
		}
	}
	seen = make(map[string]bool)
	for _, v := range actual {
		key := NormalizeText(v)
		if !expectedKeys[key] && !seen[key] {
			seen[key] = true
			extra = append(extra, v)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}
