package domain

// AllowedImageTypes is the set of content types accepted for any uploaded
// image (payment proofs, stall photos, menu photos, review photos).
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// MaxImageSize is the maximum allowed upload size in bytes (5 MB).
const MaxImageSize int64 = 5 * 1024 * 1024

// IsAllowedImageType checks whether the given content type is accepted.
func IsAllowedImageType(contentType string) bool {
	return AllowedImageTypes[contentType]
}
