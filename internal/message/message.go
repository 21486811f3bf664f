// Package message holds the transient mail model handed to the dispatch
// layer, plus the lenient header and address parsing the REST drivers rely
// on. Parsing never fails hard: malformed lines and unparsable addresses are
// dropped, and the drop count is returned so the loss is observable.
package message

import "strings"

// MailMessage is the generic send request from the host. It is constructed
// per send, consumed immediately and never persisted. Body may be HTML or
// plain text; a Content-Type header disambiguates. Attachments are file
// paths resolved at send time.
type MailMessage struct {
	To          []string
	Subject     string
	Body        string
	Headers     []string
	Attachments []string
}

// ParsedHeaders maps header names to values. Keys keep the casing they were
// supplied with; the last value wins on duplicate names within one parse.
type ParsedHeaders map[string]string

// ParseHeaderBlock parses a single newline-delimited header block.
func ParseHeaderBlock(raw string) (ParsedHeaders, int) {
	return ParseHeaderLines(strings.Split(raw, "\n"))
}

// ParseHeaderLines parses a list of "Name: Value" lines. Blank lines are
// skipped; lines without a colon count as dropped.
func ParseHeaderLines(lines []string) (ParsedHeaders, int) {
	parsed := make(ParsedHeaders, len(lines))
	dropped := 0

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			dropped++
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			dropped++
			continue
		}
		parsed[name] = strings.TrimSpace(value)
	}

	return parsed, dropped
}

// ParseHeaderPairs accepts pre-split name/value pairs, for hosts that carry
// headers as tuples rather than raw lines.
func ParseHeaderPairs(pairs [][2]string) ParsedHeaders {
	parsed := make(ParsedHeaders, len(pairs))
	for _, pair := range pairs {
		name := strings.TrimSpace(pair[0])
		if name == "" {
			continue
		}
		parsed[name] = strings.TrimSpace(pair[1])
	}
	return parsed
}

// SplitRecipients splits a comma separated recipient string into trimmed
// tokens, dropping empties. It performs no address validation.
func SplitRecipients(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
