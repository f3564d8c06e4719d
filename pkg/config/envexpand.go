package config

import (
	"os"
	"regexp"
)

// templateVar matches one well-formed substitution: {{.VAR_NAME}} with a
// shell-style identifier. The {{.VAR}} syntax was chosen over ${VAR}
// deliberately: YAML configs routinely carry regex patterns and literal
// dollar signs, and shell-style expansion would clobber them.
var templateVar = regexp.MustCompile(`\{\{\.([A-Za-z_][A-Za-z0-9_]*)\}\}`)

var (
	braceOpen  = regexp.MustCompile(`\{\{`)
	braceClose = regexp.MustCompile(`\}\}`)
)

// ExpandEnv expands {{.VAR}} references in YAML content from the process
// environment. Missing variables expand to empty string; validation catches
// required fields left empty.
//
// Malformed template syntax anywhere in the content (unclosed braces, a
// missing leading dot, spaces or pipelines inside the braces) returns the
// input unchanged rather than erroring or partially expanding: the YAML
// parser then either accepts the braces as literal text or fails with a
// clearer message of its own. No environment value ever leaks through a
// malformed document.
func ExpandEnv(data []byte) []byte {
	if !wellFormedTemplates(data) {
		return data
	}
	return templateVar.ReplaceAllFunc(data, func(m []byte) []byte {
		name := templateVar.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// wellFormedTemplates reports whether every {{ opens, and every }} closes,
// exactly one {{.VAR}} substitution; a stray or nested brace pair anywhere
// disqualifies the whole document.
func wellFormedTemplates(data []byte) bool {
	matches := templateVar.FindAllIndex(data, -1)
	starts := make(map[int]struct{}, len(matches))
	ends := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		starts[m[0]] = struct{}{}
		ends[m[1]-2] = struct{}{}
	}

	for _, open := range allOverlappingIndices(braceOpen, data) {
		if _, ok := starts[open]; !ok {
			return false
		}
	}
	for _, closing := range allOverlappingIndices(braceClose, data) {
		if _, ok := ends[closing]; !ok {
			return false
		}
	}
	return true
}

// allOverlappingIndices finds every occurrence of a two-byte token,
// including overlapping ones ("{{{" contains two "{{" occurrences), which
// FindAllIndex alone would miss.
func allOverlappingIndices(re *regexp.Regexp, data []byte) []int {
	var out []int
	offset := 0
	for offset < len(data) {
		loc := re.FindIndex(data[offset:])
		if loc == nil {
			break
		}
		out = append(out, offset+loc[0])
		offset += loc[0] + 1
	}
	return out
}
