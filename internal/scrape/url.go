package scrape

import (
	"strings"
	"time"

	"golang.org/x/net/idna"
)

// FilenameTimeLayout is the timestamp part of download file names.
const FilenameTimeLayout = "20060102_150405"

// NormalizeURL trims s and prepends "https://" unless it already starts with
// "http://" or "https://". No other validation is done.
func NormalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "https://" + s
}

// DownloadFilename names the attachment for a page fetched at now:
// "{host with dots replaced by hyphens}-hasan-tool-{YYYYMMDD_HHMMSS}.html".
func DownloadFilename(pageURL string, now time.Time) string {
	return filenameHost(pageURL) + "-hasan-tool-" + now.Format(FilenameTimeLayout) + ".html"
}

// filenameHost extracts the host of pageURL (everything after "//" up to
// the first "/", "?" or "#", minus userinfo), converts internationalized labels to
// ASCII and replaces dots with hyphens.
func filenameHost(pageURL string) string {
	rest := pageURL
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[i+2:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	if rest == "" {
		return "page"
	}

	host, port := rest, ""
	if i := strings.LastIndex(rest, ":"); i >= 0 && !strings.Contains(rest[i:], "]") {
		host, port = rest[:i], rest[i:]
	}
	if ascii, err := idna.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}
	name := strings.ReplaceAll(host+port, ".", "-")
	// Path separators would escape the file name.
	name = strings.NewReplacer("\\", "-", "/", "-").Replace(name)
	if name == "" {
		return "page"
	}
	return name
}
