// Package classify turns messy free-form text into a single strict
// JSON-serializable record. It detects key: value / key = value pairs,
// bullet and numbered list items, and falls back to cleaned plain lines.
package classify

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	bulletRe   = regexp.MustCompile(`^[-*•]\s+(.+)$`)
	numberedRe = regexp.MustCompile(`^[0-9]+[.)]\s+(.+)$`)
)

// Result is the classifier output. Exactly one shape is populated:
// fields (optionally with list), list, text, or lines. Other carries
// the freeform lines that structured shapes would otherwise drop, and
// is only filled when Options.KeepOther is set.
type Result struct {
	Fields map[string]string
	List   []string
	Text   *string
	Lines  []string
	Other  []string
}

// MarshalJSON emits only the populated shape, so callers always see a
// JSON object with one top-level key (plus "list"/"other" alongside
// "fields" where applicable).
func (r Result) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 3)
	if len(r.Fields) > 0 {
		m["fields"] = r.Fields
	}
	if len(r.List) > 0 {
		m["list"] = r.List
	}
	if len(r.Other) > 0 {
		m["other"] = r.Other
	}
	if r.Text != nil {
		m["text"] = *r.Text
	}
	if r.Lines != nil {
		m["lines"] = r.Lines
	}
	return json.Marshal(m)
}

// Options controls classification behavior.
type Options struct {
	// KeepOther retains freeform lines under an "other" key when the
	// input also contains fields or list items. The default mirrors the
	// historical behavior: those lines are dropped.
	KeepOther bool
}

// Clean normalizes a single string: trim, then collapse every internal
// whitespace run to one ASCII space. Cleaning is idempotent.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// accumulator collects per-line classifications during one pass.
type accumulator struct {
	fields map[string]string
	list   []string
	other  []string
}

// A rule inspects one line and either consumes it (returning true) or
// lets it fall through to the next rule. Rules run in declaration
// order; the first match wins.
type rule func(line string, acc *accumulator) bool

var rules = []rule{
	keyValueRule,
	listItemRule,
	freeformRule,
}

// keyValueRule accepts "key: value" and "key = value" lines. The colon
// is tried before the equals sign; a candidate only matches when the
// cleaned key is identifier-shaped. Later duplicates overwrite earlier
// ones.
func keyValueRule(line string, acc *accumulator) bool {
	for _, sep := range []string{":", "="} {
		idx := strings.Index(line, sep)
		if idx < 0 {
			continue
		}
		key := Clean(line[:idx])
		if !identRe.MatchString(key) {
			continue
		}
		if acc.fields == nil {
			acc.fields = make(map[string]string)
		}
		acc.fields[key] = Clean(line[idx+1:])
		return true
	}
	return false
}

// listItemRule accepts lines starting with a bullet marker (-, *, •)
// or a numbered marker (1. / 2)) followed by whitespace.
func listItemRule(line string, acc *accumulator) bool {
	stripped := strings.TrimSpace(line)
	for _, re := range []*regexp.Regexp{bulletRe, numberedRe} {
		if m := re.FindStringSubmatch(stripped); m != nil {
			acc.list = append(acc.list, Clean(m[1]))
			return true
		}
	}
	return false
}

// freeformRule is the terminal rule: every remaining line is kept as a
// cleaned plain line.
func freeformRule(line string, acc *accumulator) bool {
	acc.other = append(acc.other, Clean(line))
	return true
}

// Classify converts messy text into a Result. It is pure and total:
// any string input, including empty or binary-looking text, produces a
// well-formed Result without error.
func Classify(text string) Result {
	return ClassifyWith(text, Options{})
}

// ClassifyWith is Classify with explicit Options.
func ClassifyWith(text string, opts Options) Result {
	if strings.TrimSpace(text) == "" {
		empty := ""
		return Result{Text: &empty}
	}

	acc := &accumulator{}
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, r := range rules {
			if r(line, acc) {
				break
			}
		}
	}

	return assemble(acc, opts)
}

// assemble applies the output priority: fields+list, fields, list,
// single text line, then plain lines. Freeform lines are dropped
// whenever structure was found, unless KeepOther asks for them back.
func assemble(acc *accumulator, opts Options) Result {
	other := acc.other
	if !opts.KeepOther {
		other = nil
	}

	switch {
	case len(acc.fields) > 0 && len(acc.list) > 0:
		return Result{Fields: acc.fields, List: acc.list, Other: other}
	case len(acc.fields) > 0:
		return Result{Fields: acc.fields, Other: other}
	case len(acc.list) > 0:
		return Result{List: acc.list, Other: other}
	case len(acc.other) == 1:
		return Result{Text: &acc.other[0]}
	default:
		lines := acc.other
		if lines == nil {
			lines = []string{}
		}
		return Result{Lines: lines}
	}
}

// splitLines splits on \n, \r\n, and lone \r, stripping trailing
// whitespace from each line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\v\f")
	}
	return lines
}
