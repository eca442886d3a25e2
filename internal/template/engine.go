package template

import (
	"sort"
	"strings"
)

// Render replaces every literal occurrence of each token in subject and
// body. Tokens missing from subs are left as they are; values are inserted
// without escaping. Tokens are applied in sorted order.
func Render(subject, body string, subs Substitutions) RenderResult {
	tokens := make([]string, 0, len(subs))
	for token := range subs {
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	for _, token := range tokens {
		subject = strings.ReplaceAll(subject, token, subs[token])
		body = strings.ReplaceAll(body, token, subs[token])
	}

	return RenderResult{Subject: subject, Body: body}
}

// Replace applies token/value pairs to s one after another, in the order
// given. A value inserted by an earlier pair is seen by the later ones.
func Replace(s string, pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i] == "" {
			continue
		}
		s = strings.ReplaceAll(s, pairs[i], pairs[i+1])
	}
	return s
}

// RenderTemplate renders a stored template
func RenderTemplate(tmpl *Template, subs Substitutions) RenderResult {
	return Render(tmpl.Subject, tmpl.Body, subs)
}

// Tokens returns the distinct bracketed tokens found in s, in order of
// first appearance.
func Tokens(s string) []string {
	var tokens []string
	seen := make(map[string]bool)

	for {
		start := strings.IndexByte(s, '[')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+1:], ']')
		if end < 0 {
			break
		}
		token := s[start : start+end+2]
		if inner := token[1 : len(token)-1]; inner != "" && !strings.ContainsAny(inner, "[ \t\n") {
			if !seen[token] {
				seen[token] = true
				tokens = append(tokens, token)
			}
			s = s[start+end+2:]
			continue
		}
		s = s[start+1:]
	}

	return tokens
}
