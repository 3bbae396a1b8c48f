package crawler

import (
	"strings"

	"github.com/nao1215/opendir/internal/model"
)

// suffixRule maps a set of URL suffixes to a file type.
type suffixRule struct {
	fileType model.FileType
	suffixes []string
}

// classificationRules is checked in order and the first match wins.
// Suffixes are compared as plain string endings of the lowercased URL, not as
// parsed extensions, so "http://host/xrpm" is compressed. The short ".z",
// ".7z", ".py" and ".wsf" entries keep their dot; without it every URL ending
// in "z" would be compressed.
var classificationRules = []suffixRule{
	{model.FileTypeVideo, []string{"mp4", "mkv", "3gp", "avi", "mov", "mpg", "mpeg", "wmv", "m4v"}},
	{model.FileTypeAudio, []string{"mp3", "aif", "mid", "midi", "mpa", "ogg", "wav", "wma", "wpl"}},
	{model.FileTypeCompressed, []string{"rar", "zip", "deb", "pkg", "tar.gz", ".z", "rpm", ".7z", "arj"}},
	{model.FileTypeDisk, []string{"bin", "dmg", "iso", "toast", "vcd"}},
	{model.FileTypeExecutable, []string{"exe", "apk", "bat", "com", "jar", ".py", ".wsf"}},
	{model.FileTypeImage, []string{"ai", "bmp", "gif", "ico", "jpeg", "png", "jpg", "tif", "svg"}},
	{model.FileTypeText, []string{"pdf", "txt", "doc", "rtf", "wpd", "docx", "odt", "wps", "wks"}},
}

// Classify returns the file type of a URL from its trailing characters.
// It is total and deterministic: URLs matching no rule are FileTypeOther.
func Classify(rawURL string) model.FileType {
	lower := strings.ToLower(rawURL)
	for _, rule := range classificationRules {
		for _, suffix := range rule.suffixes {
			if strings.HasSuffix(lower, suffix) {
				return rule.fileType
			}
		}
	}
	return model.FileTypeOther
}
