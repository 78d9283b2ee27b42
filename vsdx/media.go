package vsdx

import (
	"path"
	"strings"
)

const mediaPrefix = "visio/media/"

// MediaParts returns the names of all embedded media parts, sorted.
func (r *Reader) MediaParts() []string {
	var out []string
	for _, name := range r.pkg.names {
		if strings.HasPrefix(name, mediaPrefix) {
			out = append(out, name)
		}
	}
	return out
}

// Image returns the bytes and content type of an embedded media part,
// typically referenced by a shape's ImageRef.
func (r *Reader) Image(ref string) ([]byte, string, error) {
	data, err := r.pkg.Part(ref)
	if err != nil {
		return nil, "", err
	}
	mime := r.pkg.ContentType(ref)
	if mime == "" {
		mime = mimeFromExt(ref)
	}
	return data, mime, nil
}

// mimeFromExt guesses a media content type from the part extension, for
// packages whose content types part does not declare it.
func mimeFromExt(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".emf":
		return "image/x-emf"
	case ".wmf":
		return "image/x-wmf"
	default:
		return "application/octet-stream"
	}
}
