package catalog_client

import (
	"net/url"
	"regexp"
	"strings"
)

var doiPattern = regexp.MustCompile(`^10\.[\d.]*/.*$`)

// NormalizeDoi 规范化DOI：去掉 https://doi.org/ 与 doi: 前缀并转为小写
func NormalizeDoi(doi string) string {
	doi = strings.TrimSpace(doi)
	lower := strings.ToLower(doi)
	switch {
	case strings.HasPrefix(lower, "https://doi.org/"), strings.HasPrefix(lower, "http://doi.org/"):
		if u, err := url.Parse(doi); err == nil {
			doi = strings.TrimPrefix(u.Path, "/")
		}
	case strings.HasPrefix(lower, "doi:"):
		doi = doi[len("doi:"):]
	}
	return strings.ToLower(strings.TrimSpace(doi))
}

// IsDoi 判断字符串是否符合DOI语法
func IsDoi(value string) bool {
	return doiPattern.MatchString(NormalizeDoi(value))
}

// NormalizeDois 规范化一组DOI并去重，忽略空值
func NormalizeDois(dois ...string) []string {
	seen := make(map[string]bool, len(dois))
	result := make([]string, 0, len(dois))
	for _, doi := range dois {
		if doi == "" {
			continue
		}
		normalized := NormalizeDoi(doi)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, normalized)
	}
	return result
}
