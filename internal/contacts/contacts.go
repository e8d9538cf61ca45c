// Package contacts loads the CSV contact list used for the allow-list,
// personalised greetings and broadcasts.
//
// The file needs a header row with at least "phone" and "name" columns (any
// case, any order). Phone numbers are reduced to their digits, so
// "+91 98765 43210", "919876543210@c.us" and "919876543210@s.whatsapp.net"
// all name the same contact.
package contacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode"
)

// Contact is a single row of the contact list.
type Contact struct {
	Phone string // digits only
	Name  string
}

// Directory is an immutable phone -> name lookup table built once at startup.
type Directory struct {
	contacts []Contact
	byPhone  map[string]string
}

// Load reads a contact list from path.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening contacts file: %w", err)
	}
	defer f.Close()

	dir, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return dir, nil
}

// Parse reads a contact list from r. Rows without a usable phone are skipped;
// when a phone appears twice the first name wins.
func Parse(r io.Reader) (*Directory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("contacts: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("contacts: reading header: %w", err)
	}

	phoneCol, nameCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case "phone":
			phoneCol = i
		case "name":
			nameCol = i
		}
	}
	if phoneCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("contacts: header must contain phone and name columns, got %v", header)
	}

	dir := &Directory{byPhone: make(map[string]string)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("contacts: %w", err)
		}
		if phoneCol >= len(rec) {
			continue
		}
		phone := Normalize(rec[phoneCol])
		if phone == "" {
			continue
		}
		if _, dup := dir.byPhone[phone]; dup {
			continue
		}
		var name string
		if nameCol < len(rec) {
			name = strings.TrimSpace(rec[nameCol])
		}
		dir.byPhone[phone] = name
		dir.contacts = append(dir.contacts, Contact{Phone: phone, Name: name})
	}
	return dir, nil
}

// Allowed reports whether id belongs to a listed contact. A nil directory
// allows nobody.
func (d *Directory) Allowed(id string) bool {
	if d == nil {
		return false
	}
	_, ok := d.byPhone[Normalize(id)]
	return ok
}

// Name returns the contact name for id.
func (d *Directory) Name(id string) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.byPhone[Normalize(id)]
	return name, ok
}

// Contacts returns the contacts in file order.
func (d *Directory) Contacts() []Contact {
	if d == nil {
		return nil
	}
	out := make([]Contact, len(d.contacts))
	copy(out, d.contacts)
	return out
}

// Len returns the number of contacts.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.contacts)
}

// Normalize reduces a phone number or WhatsApp JID to its digits.
// "919876543210:12@s.whatsapp.net" -> "919876543210".
func Normalize(id string) string {
	if i := strings.IndexByte(id, '@'); i >= 0 {
		id = id[:i]
	}
	if i := strings.IndexByte(id, ':'); i >= 0 {
		id = id[:i]
	}
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
}

var greetingWords = map[string]bool{
	"hi": true, "hii": true, "hello": true, "hey": true, "hola": true,
	"namaste": true, "namaskar": true, "greetings": true,
}

var greetingPhrases = []string{"good morning", "good afternoon", "good evening"}

// greetingFillers may accompany a greeting without turning it into a question.
var greetingFillers = map[string]bool{
	"there": true, "all": true, "everyone": true, "team": true,
	"sir": true, "madam": true, "kartavya": true, "kartavyaai": true,
}

// IsGreetingOnly reports whether text is nothing but a greeting, such as
// "Hi" or "Good morning team". A greeting followed by a question is not.
func IsGreetingOnly(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	greeted := false
	for i := 0; i < len(words); i++ {
		w := words[i]
		if i+1 < len(words) && slices.Contains(greetingPhrases, w+" "+words[i+1]) {
			greeted = true
			i++
			continue
		}
		switch {
		case greetingWords[w]:
			greeted = true
		case greetingFillers[w]:
		default:
			return false
		}
	}
	return greeted
}

// Greeting returns the personalised welcome for a known contact.
func Greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "👋 Hello! Welcome to *KartavyaAI*. How can we help you today?"
	}
	return fmt.Sprintf("👋 Hello %s! Welcome to *KartavyaAI*. How can we help you today?", name)
}
