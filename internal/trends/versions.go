package trends

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// currentVersions maps known product names (lowercased) to their current
// major.minor version. The guard is a blocklist of known staleness:
// products missing from this table pass through unfiltered.
var currentVersions = map[string]version{
	"gemini":           {2, 5},
	"gpt":              {5, 0},
	"chatgpt":          {5, 0},
	"claude":           {4, 5},
	"llama":            {4, 0},
	"grok":             {4, 0},
	"mistral":          {3, 0},
	"deepseek":         {3, 1},
	"stable diffusion": {3, 5},
	"midjourney":       {7, 0},
}

type version struct {
	major int
	minor int
}

func (v version) String() string {
	return fmt.Sprintf("%d.%d", v.major, v.minor)
}

func (v version) less(other version) bool {
	if v.major != other.major {
		return v.major < other.major
	}
	return v.minor < other.minor
}

// versionPattern captures "ProductName <number>[.<number>]" tokens. The
// product part is matched case-insensitively against currentVersions.
var versionPattern = regexp.MustCompile(`(?i)\b([a-z][a-z ]*?)[ \-]v?(\d+)(?:\.(\d+))?\b`)

// ValidateVersionRecency scans free text for product version tokens and
// rejects topics referencing a version strictly older than the tracked
// current one. Topics with no version token, or mentioning unknown
// products, are valid: there is nothing to contradict.
func ValidateVersionRecency(topic string) Verdict {
	matches := versionPattern.FindAllStringSubmatch(topic, -1)
	for _, m := range matches {
		product := normalizeProduct(m[1])
		current, tracked := lookupProduct(product)
		if !tracked {
			continue
		}
		major, _ := strconv.Atoi(m[2])
		minor := 0
		if m[3] != "" {
			minor, _ = strconv.Atoi(m[3])
		}
		mentioned := version{major, minor}
		if mentioned.less(current) {
			return Verdict{
				IsValid: false,
				Reason: fmt.Sprintf("%s %s is outdated, current version is %s",
					strings.TrimSpace(m[1]), mentioned, current),
			}
		}
	}
	return Verdict{IsValid: true}
}

func normalizeProduct(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// lookupProduct matches the captured product text against the version
// table, trying the full phrase first and then its trailing words so
// "google gemini" still resolves to "gemini".
func lookupProduct(name string) (version, bool) {
	if v, ok := currentVersions[name]; ok {
		return v, true
	}
	words := strings.Fields(name)
	for i := 1; i < len(words); i++ {
		if v, ok := currentVersions[strings.Join(words[i:], " ")]; ok {
			return v, true
		}
	}
	return version{}, false
}
