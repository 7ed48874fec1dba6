package ws

import (
	"strings"

	"wsync-go/internal/model"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true, ".bmp": true,
}

var documentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true,
	".xlsx": true, ".ppt": true, ".pptx": true,
}

// ClassifyFile derives the display classification for a file record.
func ClassifyFile(path string, isDirectory bool) model.FileType {
	if isDirectory {
		return model.FileTypeFolder
	}
	ext := strings.ToLower(extOf(path))
	switch {
	case imageExts[ext]:
		return model.FileTypeImage
	case documentExts[ext]:
		return model.FileTypeDocument
	default:
		return model.FileTypeText
	}
}

func extOf(path string) string {
	base := baseName(path)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		return base[i:]
	}
	return ""
}
