package message_test

import (
	"reflect"
	"testing"

	"github.com/example/mailroute/internal/message"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		want   message.AddressEntry
		wantOK bool
	}{
		{
			name:   "display name form",
			token:  "Jane Doe <jane@example.com>",
			want:   message.AddressEntry{Address: "jane@example.com", Name: "Jane Doe"},
			wantOK: true,
		},
		{
			name:   "bare address",
			token:  "jane@example.com",
			want:   message.AddressEntry{Address: "jane@example.com"},
			wantOK: true,
		},
		{
			name:   "surrounding whitespace",
			token:  "  jane@example.com  ",
			want:   message.AddressEntry{Address: "jane@example.com"},
			wantOK: true,
		},
		{
			name:  "not an email",
			token: "not-an-email",
		},
		{
			name:  "display name with invalid address",
			token: "Jane <not-an-email>",
		},
		{
			name:  "empty",
			token: "   ",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, ok := message.ParseAddress(tc.token)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Fatalf("entry: got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseAddressList(t *testing.T) {
	entries, dropped := message.ParseAddressList("a@x.com, Bob <b@x.com>, garbage")

	want := []message.AddressEntry{
		{Address: "a@x.com"},
		{Address: "b@x.com", Name: "Bob"},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("entries mismatch: got %v, want %v", entries, want)
	}
	if dropped != 1 {
		t.Fatalf("expected 1 dropped entry, got %d", dropped)
	}
}

func TestParseAddressListAllEmpty(t *testing.T) {
	entries, dropped := message.ParseAddressList(" , ,")
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %v", entries)
	}
	if dropped != 0 {
		t.Fatalf("empty tokens should not count as dropped, got %d", dropped)
	}
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"jane@example.com", true},
		{"not-an-email", false},
		{"Jane <jane@example.com>", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := message.ValidAddress(tc.value); got != tc.want {
			t.Errorf("ValidAddress(%q): got %v, want %v", tc.value, got, tc.want)
		}
	}
}
