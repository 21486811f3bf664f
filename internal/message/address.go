package message

import (
	"net/mail"
	"regexp"
	"strings"
)

// displayNamePattern matches "Display Name <address>"; the name is captured
// non-greedily so angle brackets inside the address do not bleed into it.
var displayNamePattern = regexp.MustCompile(`^(.+?)\s*<(.+?)>$`)

// AddressEntry is a structured recipient: a syntactically valid address and
// an optional display name. The JSON shape matches the REST provider wire
// format.
type AddressEntry struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// ValidAddress reports whether value is a bare, syntactically valid email
// address with no display name attached.
func ValidAddress(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == value
}

// ParseAddress parses one address token, either "Display Name <address>" or
// a bare address. The second return is false when the token cannot be parsed
// into a valid address.
func ParseAddress(token string) (AddressEntry, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AddressEntry{}, false
	}

	if m := displayNamePattern.FindStringSubmatch(token); m != nil {
		addr := strings.TrimSpace(m[2])
		if !ValidAddress(addr) {
			return AddressEntry{}, false
		}
		return AddressEntry{Address: addr, Name: strings.TrimSpace(m[1])}, true
	}

	if ValidAddress(token) {
		return AddressEntry{Address: token}, true
	}

	return AddressEntry{}, false
}

// ParseAddressList parses a comma separated address list. Unparsable entries
// are discarded; the second return counts them so a partially bad list is
// still usable without the loss being invisible.
func ParseAddressList(csv string) ([]AddressEntry, int) {
	tokens := strings.Split(csv, ",")
	entries := make([]AddressEntry, 0, len(tokens))
	dropped := 0

	for _, token := range tokens {
		if strings.TrimSpace(token) == "" {
			continue
		}
		entry, ok := ParseAddress(token)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, entry)
	}

	return entries, dropped
}
