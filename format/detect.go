// Package format provides file format detection for Visio drawing files.
package format

import (
	"archive/zip"
	"io"
	"path/filepath"
	"strings"
)

// Format represents a recognized Visio file format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// VSDX indicates a Visio drawing (.vsdx), an OPC zip package.
	VSDX
	// VSDM indicates a macro-enabled Visio drawing (.vsdm).
	VSDM
	// VSTX indicates a Visio template (.vstx).
	VSTX
	// VSTM indicates a macro-enabled Visio template (.vstm).
	VSTM
	// VSD indicates a legacy binary Visio drawing (.vsd), an OLE
	// compound document rather than a zip package.
	VSD
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case VSDX:
		return "VSDX"
	case VSDM:
		return "VSDM"
	case VSTX:
		return "VSTX"
	case VSTM:
		return "VSTM"
	case VSD:
		return "VSD"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case VSDX:
		return ".vsdx"
	case VSDM:
		return ".vsdm"
	case VSTX:
		return ".vstx"
	case VSTM:
		return ".vstm"
	case VSD:
		return ".vsd"
	default:
		return ""
	}
}

// Openable reports whether the format is a package this library can
// parse. Macro-enabled and template variants share the drawing package
// layout; legacy OLE files do not.
func (f Format) Openable() bool {
	switch f {
	case VSDX, VSDM, VSTX, VSTM:
		return true
	default:
		return false
	}
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".vsdx":
		return VSDX
	case ".vsdm":
		return VSDM
	case ".vstx":
		return VSTX
	case ".vstm":
		return VSTM
	case ".vsd":
		return VSD
	default:
		return Unknown
	}
}

// DetectFromMagic checks file magic bytes to determine format.
// This provides more reliable detection than extension-based detection.
// Returns Unknown for zip archives, which all Visio OPC variants share;
// use DetectFromReader to inspect the archive contents.
func DetectFromMagic(data []byte) Format {
	if len(data) < 4 {
		return Unknown
	}

	// OLE compound document magic: legacy binary .vsd
	if isOLEMagic(data) {
		return VSD
	}

	// ZIP magic (all modern Visio formats are ZIP archives): PK\x03\x04
	if data[0] == 0x50 && data[1] == 0x4B && data[2] == 0x03 && data[3] == 0x04 {
		// Could be VSDX, VSDM, VSTX, VSTM, or an unrelated zip.
		// Return Unknown here - caller should use DetectFromReader.
		return Unknown
	}

	return Unknown
}

// isOLEMagic checks for the OLE2 compound file signature.
func isOLEMagic(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return data[0] == 0xD0 && data[1] == 0xCF && data[2] == 0x11 && data[3] == 0xE0 &&
		data[4] == 0xA1 && data[5] == 0xB1 && data[6] == 0x1A && data[7] == 0xE1
}

// DetectFromReader inspects the content to determine format.
// This is more reliable than extension-based detection and can
// distinguish between the ZIP-based Visio variants (VSDX, VSDM, VSTX,
// VSTM) by their declared content types.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, 8)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	magic = magic[:n]

	if isOLEMagic(magic) {
		return VSD, nil
	}

	if len(magic) >= 4 && magic[0] == 0x50 && magic[1] == 0x4B && magic[2] == 0x03 && magic[3] == 0x04 {
		return detectZIPFormat(r, size)
	}

	return Unknown, nil
}

// detectZIPFormat inspects a ZIP archive to determine which Visio
// variant it holds, if any.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	// The content-type index names the main document part's media type,
	// which is the authoritative marker for each Visio variant.
	for _, f := range zr.File {
		if f.Name != "[Content_Types].xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			break
		}
		data, err := io.ReadAll(io.LimitReader(rc, 64<<10))
		rc.Close()
		if err != nil {
			break
		}
		types := string(data)
		switch {
		case strings.Contains(types, "vnd.ms-visio.template.macroEnabled"):
			return VSTM, nil
		case strings.Contains(types, "vnd.ms-visio.template"):
			return VSTX, nil
		case strings.Contains(types, "vnd.ms-visio.drawing.macroEnabled"):
			return VSDM, nil
		case strings.Contains(types, "vnd.ms-visio.drawing"):
			return VSDX, nil
		}
		break
	}

	// Fall back to part layout when the content-type index is missing
	// or does not declare a Visio media type.
	for _, f := range zr.File {
		if f.Name == "visio/document.xml" || strings.HasPrefix(f.Name, "visio/pages/") {
			return VSDX, nil
		}
	}

	return Unknown, nil
}
