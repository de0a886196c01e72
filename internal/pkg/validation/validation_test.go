package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowedDocument(t *testing.T) {
	assert.True(t, IsAllowedDocument("report.pdf"))
	assert.True(t, IsAllowedDocument("PHOTO.JPG"))
	assert.True(t, IsAllowedDocument("scan.jpeg"))
	assert.True(t, IsAllowedDocument("img.png"))
	assert.False(t, IsAllowedDocument("macro.docx"))
	assert.False(t, IsAllowedDocument("noext"))
}

func TestIsAllowedSize(t *testing.T) {
	assert.True(t, IsAllowedSize(1))
	assert.True(t, IsAllowedSize(MaxDocumentSize))
	assert.False(t, IsAllowedSize(MaxDocumentSize+1))
	assert.False(t, IsAllowedSize(0))
}

func TestIsValidNationalID(t *testing.T) {
	assert.True(t, IsValidNationalID("1104567890"))
	assert.True(t, IsValidNationalID("1790011223001"))
	assert.False(t, IsValidNationalID("11045"))
	assert.False(t, IsValidNationalID("11045678AB"))
}

func TestIsValidFullname(t *testing.T) {
	assert.True(t, IsValidFullname("María José Ortega"))
	assert.True(t, IsValidFullname("O'Neil-Smith"))
	assert.False(t, IsValidFullname("   "))
	assert.False(t, IsValidFullname("R2D2"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.co"))
	assert.False(t, IsValidEmail("a@b"))
}
