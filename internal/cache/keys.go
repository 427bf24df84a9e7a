package cache

import (
	"fmt"
	"strings"
)

// NormalizeTitle folds a job title to its cache identity: trimmed, lowercased,
// with internal whitespace runs collapsed to one space.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

func AnalysisKey(jobTitle string) string {
	return fmt.Sprintf("job:%s", NormalizeTitle(jobTitle))
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
