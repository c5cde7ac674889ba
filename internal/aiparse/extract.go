// internal/aiparse/extract.go
package aiparse

import "fmt"

// MalformedResponseError means a provider replied but the content failed
// extraction or validation. It is a content failure, not a transport failure:
// the router never retries it and the engines surface it to the caller as-is.
type MalformedResponseError struct {
	Reason  string
	Snippet string
}

func (e *MalformedResponseError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("malformed provider response: %s (content: %s)", e.Reason, e.Snippet)
	}
	return fmt.Sprintf("malformed provider response: %s", e.Reason)
}

const snippetLen = 200

func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen] + "..."
}

// ExtractJSON returns the first well-formed JSON object or array embedded in
// the text. Providers wrap JSON in prose and markdown fences; a balanced scan
// that tracks string and escape state finds candidates regardless of the
// wrapping, where fence-stripping heuristics break on nested backticks. A
// candidate that balances but does not parse (a stray brace blob ahead of the
// real payload) is skipped and the scan resumes at the next opening bracket.
func ExtractJSON(text string) (string, error) {
	sawOpener := false
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		sawOpener = true
		candidate, ok := scanBalanced(text, i)
		if !ok {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if !sawOpener {
		return "", &MalformedResponseError{Reason: "no JSON value found", Snippet: snippet(text)}
	}
	return "", &MalformedResponseError{Reason: "unbalanced or unparseable JSON value", Snippet: snippet(text)}
}

// scanBalanced returns the balanced bracket run starting at text[start],
// which must be '{' or '['. String and escape state is respected so brackets
// inside string values never move the depth counter.
func scanBalanced(text string, start int) (string, bool) {
	open := text[start]
	close := byte('}')
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
