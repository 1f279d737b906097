package datasets

import (
	"path/filepath"
	"strings"

	// Register a decoder for every allow-listed extension.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// imageExtensions is the fixed allow-list of filename extensions treated as
// images. Matching is case-insensitive.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

func hasImageExtension(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}
