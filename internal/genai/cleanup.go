package genai

import "strings"

// rolePrefixes are formatting artifacts the model tends to prepend to
// free-text host lines. The list is deliberately enumerated so new patterns
// get a test before they get stripped.
var rolePrefixes = []string{
	"Host:",
	"The Host:",
	"Facilitator:",
	"Moderator:",
}

// quotePairs are surrounding quote characters stripped from free-text
// output, outermost pair only.
var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"“", "”"}, // curly double quotes
	{"‘", "’"}, // curly single quotes
}

// NormalizeLine cleans a free-text model response for display: it trims
// whitespace, removes a single leading role label, and strips one pair of
// surrounding quotes. The user never sees raw formatting artifacts.
func NormalizeLine(s string) string {
	s = strings.TrimSpace(s)

	for _, prefix := range rolePrefixes {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}

	for _, pair := range quotePairs {
		if len(s) > len(pair[0])+len(pair[1]) &&
			strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			s = strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
			break
		}
	}

	return s
}

// stripCodeFences removes a markdown code fence wrapper from a response that
// should be raw JSON. Some models wrap structured output in ```json blocks
// even when a response schema was requested.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	var body []string
	inBlock := false
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inBlock = !inBlock
			continue
		}
		if inBlock {
			body = append(body, line)
		}
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
