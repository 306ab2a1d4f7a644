package util

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseFloat extracts the first numeric value from s and returns it as a
// float64. Markdown emphasis markers are stripped before matching, so
// values like "**0.85**" parse cleanly. If s contains no number, def is
// returned.
func ParseFloat(s string, def float64) float64 {
	cleaned := strings.ReplaceAll(s, "**", "")

	match := numberPattern.FindString(cleaned)
	if match == "" {
		return def
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return def
	}

	return v
}

// ClampUnit restricts v to the closed interval [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// ExtractJSONObject locates the first balanced JSON object embedded in s
// and returns it. Surrounding prose and Markdown code fences are ignored.
// The second return value reports whether a valid object was found.
func ExtractJSONObject(s string) (string, bool) {
	cleaned := stripCodeFences(s)

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(cleaned); i++ {
		c := cleaned[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := cleaned[start : i+1]
				if gjson.Valid(candidate) {
					return candidate, true
				}

				return "", false
			}
		}
	}

	return "", false
}

func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)

	if !strings.Contains(trimmed, "```") {
		return trimmed
	}

	var sb strings.Builder

	for _, line := range strings.Split(trimmed, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}

		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	return sb.String()
}
