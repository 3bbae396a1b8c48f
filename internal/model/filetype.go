package model

import "strings"

// FileType is the coarse content category of a discovered file.
// Its string value is what gets stored and what search filters on.
type FileType string

const (
	FileTypeVideo      FileType = "video"
	FileTypeAudio      FileType = "audio"
	FileTypeCompressed FileType = "compressed"
	FileTypeDisk       FileType = "disk"
	FileTypeExecutable FileType = "executable"
	FileTypeImage      FileType = "image"
	FileTypeText       FileType = "text"

	// FileTypeOther is assigned when no suffix matches. Links of this type
	// are never stored.
	FileTypeOther FileType = "other"
)

// CategoryAll is the search category that matches every stored FileType.
const CategoryAll = "all"

// FileTypes returns the storable file types in classification order.
func FileTypes() []FileType {
	return []FileType{
		FileTypeVideo,
		FileTypeAudio,
		FileTypeCompressed,
		FileTypeDisk,
		FileTypeExecutable,
		FileTypeImage,
		FileTypeText,
	}
}

// String returns the stored representation of the file type.
func (f FileType) String() string {
	return string(f)
}

// IsStorable reports whether links of this type belong in the link store.
func (f FileType) IsStorable() bool {
	for _, ft := range FileTypes() {
		if f == ft {
			return true
		}
	}
	return false
}

// ParseFileType converts a user supplied category name into a FileType.
// Matching is case-insensitive; "other" and unknown names are rejected.
func ParseFileType(s string) (FileType, bool) {
	ft := FileType(strings.ToLower(strings.TrimSpace(s)))
	if !ft.IsStorable() {
		return "", false
	}
	return ft, true
}
