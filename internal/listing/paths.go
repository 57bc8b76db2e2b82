package listing

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/imaging"
	"github.com/google/uuid"
)

// ReferenceID builds the synthetic identifier stored with a new listing
func ReferenceID(brandSlug, modelSlug, reference string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%d", brandSlug, modelSlug, slugify(reference), at.UnixNano())
}

// ImagePath is where the index-th image of a listing is stored
func ImagePath(listingID uuid.UUID, modelSlug, reference string, index int) string {
	return fmt.Sprintf("%s/%s-%s-%d.%s", listingID, modelSlug, slugify(reference), index, imaging.Extension)
}

// DocumentPath is where the index-th document of a listing is stored
func DocumentPath(listingID uuid.UUID, filename string, index int) (path, ext string) {
	ext = DocumentExt(filename)
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name := slugify(base)
	if name == "" {
		name = "document"
	}
	stored := ext
	if stored == "jpeg" {
		stored = "jpg"
	}
	return fmt.Sprintf("%s/%s-%d.%s", listingID, name, index, stored), ext
}

// DocumentExt returns the lower-cased extension of filename without the dot
func DocumentExt(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// slugify lower-cases s and replaces runs of characters other than
// letters, digits and dots with a single dash
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
