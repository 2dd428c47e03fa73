// Package render substitutes {{TOKEN}} placeholders in synthesized
// templates.
//
// Synthesis keeps placeholders such as {{ATLAS_ORG_ID}} or {{DB_PASSWORD}}
// as opaque strings. Rendering replaces them with values from the process
// environment and .env files; a placeholder without a value is an error,
// never a guess.
package render

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/subosito/gotenv"

	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

// ErrMissingValue is returned when a placeholder has no value.
var ErrMissingValue = errors.New("no value for placeholder")

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Placeholders returns the distinct placeholder names in data, sorted.
func Placeholders(data []byte) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllSubmatch(data, -1) {
		name := string(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Values collects placeholder values from envFiles, later files winning,
// and the process environment, which wins over every file. Missing files
// are skipped.
func Values(envFiles ...string) (map[string]string, error) {
	values := make(map[string]string)
	for _, file := range envFiles {
		env, err := readEnvFile(file)
		if err != nil {
			return nil, err
		}
		for k, v := range env {
			values[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			values[k] = v
		}
	}
	return values, nil
}

func readEnvFile(file string) (gotenv.Env, error) {
	f, err := os.Open(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	env, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	return env, nil
}

// Render replaces every placeholder in data. Values are JSON-escaped so the
// result stays a valid JSON document. All missing names are reported at once.
func Render(data []byte, values map[string]string) ([]byte, error) {
	var missing []string
	for _, name := range Placeholders(data) {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingValue, strings.Join(missing, ", "))
	}

	return placeholderPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(placeholderPattern.FindSubmatch(match)[1])
		return []byte(escapeJSON(values[name]))
	}), nil
}

// escapeJSON escapes s for use inside a JSON string literal.
func escapeJSON(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// Assembly renders every template of a. Nested templates get new hashes
// and object keys since their content changes.
func Assembly(a *synth.Assembly, values map[string]string) (*synth.Assembly, error) {
	return a.Transform(func(_ *synth.StackArtifact, data []byte) ([]byte, error) {
		return Render(data, values)
	})
}

// Missing returns, per template file, the placeholders of a that values
// does not cover.
func Missing(a *synth.Assembly, values map[string]string) (map[string][]string, error) {
	missing := make(map[string][]string)
	for _, s := range a.Stacks {
		data, err := s.Data()
		if err != nil {
			return nil, err
		}
		for _, name := range Placeholders(data) {
			if _, ok := values[name]; !ok {
				missing[s.TemplateFile] = append(missing[s.TemplateFile], name)
			}
		}
	}
	return missing, nil
}
