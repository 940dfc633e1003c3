package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"signalfire/pkg/models"
)

// Per-platform caption/body limits as documented by each API.
var contentLimits = map[models.Platform]int{
	models.PlatformLinkedIn:  3000,
	models.PlatformFacebook:  63206,
	models.PlatformInstagram: 2200,
	models.PlatformPinterest: 500,
}

var hashtagPattern = regexp.MustCompile(`#\w+`)

// ValidateContentLength checks post content against the platform's limit.
func ValidateContentLength(platform models.Platform, content string) error {
	limit, ok := contentLimits[platform]
	if !ok {
		return fmt.Errorf("unknown platform %q", platform)
	}
	if content == "" {
		return fmt.Errorf("content is required")
	}
	if n := utf8.RuneCountInString(content); n > limit {
		return fmt.Errorf("content is %d characters, %s allows at most %d", n, platform, limit)
	}
	return nil
}

// CountHashtags returns the number of #tags in the content.
func CountHashtags(content string) int {
	return len(hashtagPattern.FindAllString(content, -1))
}

// ValidateHashtagCount rejects content carrying more than max hashtags.
func ValidateHashtagCount(content string, max int) error {
	if n := CountHashtags(content); n > max {
		return fmt.Errorf("content has %d hashtags, at most %d allowed", n, max)
	}
	return nil
}
