package nodes

import (
	"strings"
	"text/template"
)

// promptFuncMap returns the template.FuncMap shared by every LLM-backed
// node's prompt template (answerer, score_judge, verification). Grounded on
// infrastructure/units/template_functions.go's GetTemplateFuncMap, ported
// unchanged in behavior from ports.Unit-era prompt templates to the
// node-body templates built in this package.
func promptFuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"mul": func(a, b int) int { return a * b },
		"div": func(a, b int) int {
			if b == 0 {
				return 0
			}
			return a / b
		},
		"mod": func(a, b int) int {
			if b == 0 {
				return 0
			}
			return a % b
		},
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
		"lower":     strings.ToLower,
		"upper":     strings.ToUpper,
		"trim":      strings.TrimSpace,
		"replace": func(s, old, new string) string {
			return strings.ReplaceAll(s, old, new)
		},
		"join":  strings.Join,
		"split": strings.Split,
		"truncate": func(s string, length int) string {
			if length <= 0 {
				return ""
			}
			if len(s) <= length {
				return s
			}
			if length > 3 {
				return s[:length-3] + "..."
			}
			return s[:length]
		},
	}
}
