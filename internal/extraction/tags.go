package extraction

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultInjurySiteRules maps an injury site to the words callers use for it.
var DefaultInjurySiteRules = map[string][]string{
	"head":     {"head", "concussion", "skull", "forehead"},
	"neck":     {"neck", "whiplash", "cervical"},
	"shoulder": {"shoulder", "rotator cuff", "collarbone", "clavicle"},
	"back":     {"back", "spine", "lumbar", "disc", "herniated"},
	"arm":      {"arm", "elbow", "forearm"},
	"wrist":    {"wrist", "hand", "finger", "thumb"},
	"chest":    {"chest", "rib", "ribs", "sternum"},
	"hip":      {"hip", "pelvis", "tailbone"},
	"leg":      {"leg", "thigh", "shin"},
	"knee":     {"knee", "acl", "meniscus"},
	"ankle":    {"ankle", "foot", "toe", "heel"},
	"face":     {"face", "jaw", "nose", "teeth", "tooth", "eye"},
}

// maxInjurySites caps how many sites a single transcript can report.
const maxInjurySites = 8

// InjurySiteTagger tags a transcript with the body sites it mentions.
type InjurySiteTagger struct {
	rules map[string]*regexp.Regexp
	order []string
}

// NewInjurySiteTagger compiles the given rules, or DefaultInjurySiteRules
// when rules is empty. Keywords match on word boundaries, case-insensitively.
func NewInjurySiteTagger(rules map[string][]string) *InjurySiteTagger {
	if len(rules) == 0 {
		rules = DefaultInjurySiteRules
	}

	t := &InjurySiteTagger{rules: make(map[string]*regexp.Regexp, len(rules))}
	for site, keywords := range rules {
		quoted := make([]string, 0, len(keywords))
		for _, k := range keywords {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(k)))
		}
		t.rules[site] = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
		t.order = append(t.order, site)
	}
	sort.Strings(t.order)
	return t
}

// Tag returns the sites mentioned in content in alphabetical order, capped
// at eight entries. It never returns nil.
func (t *InjurySiteTagger) Tag(content string) []string {
	content = strings.ToLower(content)
	out := []string{}
	for _, site := range t.order {
		if t.rules[site].MatchString(content) {
			out = append(out, site)
			if len(out) == maxInjurySites {
				break
			}
		}
	}
	return out
}
