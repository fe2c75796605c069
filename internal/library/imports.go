package library

import (
	"regexp"
	"strings"
)

var (
	usingPattern  = regexp.MustCompile(`using\s(\n|\r|.+)(\s?){1};`)
	dottedPattern = regexp.MustCompile(`^@?[A-Za-z_]\w*(\.@?[A-Za-z_]\w*)*$`)
)

// DetectImports returns the namespaces named by using directives in text,
// in order of first appearance. Static usings contribute their type name;
// aliases and using statements are ignored.
func DetectImports(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range usingPattern.FindAllString(text, -1) {
		name := strings.TrimSpace(strings.TrimPrefix(m, "using"))
		name = strings.TrimSpace(strings.TrimSuffix(name, ";"))
		if rest, ok := strings.CutPrefix(name, "static "); ok {
			name = strings.TrimSpace(rest)
		}
		if !dottedPattern.MatchString(name) || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
