package evidence

import (
	"regexp"
	"strings"
)

var (
	pyImport     = regexp.MustCompile(`^import\s+(.+)$`)
	pyFromImport = regexp.MustCompile(`^from\s+([\w.]+)\s+import\b`)

	jsFrom       = regexp.MustCompile(`\bfrom\s+['"]([^'"]+)['"]`)
	jsBareImport = regexp.MustCompile(`^import\s+['"]([^'"]+)['"]`)
	jsRequire    = regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`)
	jsDynamic    = regexp.MustCompile(`\bimport\(\s*['"]([^'"]+)['"]\s*\)`)

	goSingle = regexp.MustCompile(`^import\s+(?:[\w.]+\s+)?"([^"\s]+)"`)
	goSpec   = regexp.MustCompile(`^(?:[\w.]+\s+)?"([^"\s]+)"$`)
)

// ExtractImports returns the module names imported by the given added lines,
// de-duplicated in first-seen order. Unknown languages yield nil.
func ExtractImports(language string, lines []string) []string {
	var extract func(string) []string
	switch language {
	case "python":
		extract = pythonImports
	case "javascript", "typescript", "react-native":
		extract = scriptImports
	case "go":
		extract = goImports
	default:
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, line := range lines {
		for _, tok := range extract(strings.TrimSpace(line)) {
			if tok == "" || seen[tok] {
				continue
			}
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

func pythonImports(line string) []string {
	if m := pyFromImport.FindStringSubmatch(line); m != nil {
		if strings.HasPrefix(m[1], ".") {
			return nil
		}
		return []string{topLevel(m[1])}
	}
	m := pyImport.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(m[1], ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		out = append(out, topLevel(fields[0]))
	}
	return out
}

func topLevel(module string) string {
	if i := strings.IndexByte(module, '.'); i >= 0 {
		return module[:i]
	}
	return module
}

func scriptImports(line string) []string {
	var out []string
	for _, re := range []*regexp.Regexp{jsFrom, jsBareImport, jsRequire, jsDynamic} {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			if pkg := packageName(m[1]); pkg != "" {
				out = append(out, pkg)
			}
		}
	}
	return out
}

// packageName reduces a module specifier to its package: "lodash/fp" ->
// "lodash", "@scope/pkg/sub" -> "@scope/pkg". Relative and absolute paths
// are not packages.
func packageName(spec string) string {
	if spec == "" || strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return ""
	}
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 {
			return spec
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

func goImports(line string) []string {
	if m := goSingle.FindStringSubmatch(line); m != nil {
		return []string{m[1]}
	}
	// an import spec inside a grouped block
	if m := goSpec.FindStringSubmatch(line); m != nil {
		return []string{m[1]}
	}
	return nil
}
