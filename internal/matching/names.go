package matching

import (
	"regexp"
	"strings"
)

// nameSuffixes are stripped from the end of a card name in this order. The
// mechanic suffixes appear twice so stacked suffixes ("Charizard V VMAX",
// "Mewtwo GX ex") peel off in one call. Every suffix must be its own word,
// split off by spaces or a hyphen ("Mewtwo-EX"), so names that merely end in
// those letters (Zekrom, Alakazam, Latias) are left alone. M and Mega need a
// space so "Nidoran-M" keeps its gender.
var nameSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s*\([^)]*\)\s*$`),                // (variant)
	regexp.MustCompile(`\s*-\s*\d+/?\d*\s*$`),             // - 123/456
	regexp.MustCompile(`(?i)[\s-]+ex\s*$`),                // ex
	regexp.MustCompile(`(?i)[\s-]+V\s*$`),                 // V
	regexp.MustCompile(`(?i)[\s-]+VMAX\s*$`),              // VMAX
	regexp.MustCompile(`(?i)[\s-]+GX\s*$`),                // GX
	regexp.MustCompile(`(?i)[\s-]+Prime\s*$`),             // Prime
	regexp.MustCompile(`(?i)[\s-]+LV\.?\s*(?:X|\d+)\s*$`), // LV.X, LV. 45
	regexp.MustCompile(`(?i)[\s-]+BREAK\s*$`),             // BREAK
	regexp.MustCompile(`(?i)[\s-]+EX\s*$`),                // EX
	regexp.MustCompile(`(?i)\s+M\s*$`),                    // M
	regexp.MustCompile(`(?i)\s+Mega\s*$`),                 // Mega
	regexp.MustCompile(`(?i)[\s-]+GX\s*$`),
	regexp.MustCompile(`(?i)[\s-]+V\s*$`),
	regexp.MustCompile(`(?i)[\s-]+VSTAR\s*$`), // VSTAR
	regexp.MustCompile(`(?i)[\s-]+VMAX\s*$`),
	regexp.MustCompile(`(?i)[\s-]+ex\s*$`),
}

// CleanName strips variant and mechanic suffixes from a card name so that
// "Pikachu V (Full Art)" and "Pikachu" produce the same cleaned key.
func CleanName(name string) string {
	if name == "" {
		return ""
	}
	for _, re := range nameSuffixes {
		name = re.ReplaceAllString(name, "")
	}
	return strings.TrimSpace(name)
}
