package validation

import (
	"path/filepath"
	"regexp"
	"strings"
)

// MaxDocumentSize is the largest claim or policy document accepted (5 MiB).
const MaxDocumentSize = 5 * 1024 * 1024

var documentExts = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Full names: letters (accents included), spaces, hyphens, apostrophes and dots.
var fullnameRe = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)

// National IDs and insurer tax ids are plain digit strings.
var nationalIDRe = regexp.MustCompile(`^[0-9]{10,13}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidFullname(fullname string) bool {
	return strings.TrimSpace(fullname) != "" && fullnameRe.MatchString(fullname)
}

// IsValidNationalID accepts a 10-digit cedula or a 13-digit RUC.
func IsValidNationalID(id string) bool {
	return nationalIDRe.MatchString(id)
}

// IsAllowedDocument reports whether name has an accepted extension (case-insensitive).
func IsAllowedDocument(name string) bool {
	return documentExts[strings.ToLower(filepath.Ext(name))]
}

// IsAllowedSize reports whether a document of n bytes fits under MaxDocumentSize.
func IsAllowedSize(n int) bool {
	return n > 0 && n <= MaxDocumentSize
}
