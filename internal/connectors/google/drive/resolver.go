package drive

import "google.golang.org/api/drive/v3"

// WebURL returns the file's web link, falling back to the standard viewer
// URL when the API omitted it.
func WebURL(file *drive.File) string {
	if file.WebViewLink != "" {
		return file.WebViewLink
	}
	if file.Id == "" {
		return ""
	}
	return "https://drive.google.com/file/d/" + file.Id + "/view"
}
