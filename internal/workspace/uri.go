package workspace

import (
	"net/url"
	"path/filepath"
	"strings"
)

// URIToPath converts a file:// URI to a file system path. Other strings are
// returned unchanged.
func URIToPath(uri string) string {
	after, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return uri
	}

	path := after
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	// file:///C:/dir on Windows
	if len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path)
}

// PathToURI converts a file system path to a file:// URI.
func PathToURI(path string) string {
	path = filepath.ToSlash(path)

	escaped := (&url.URL{Path: path}).EscapedPath()

	if len(path) > 1 && path[1] == ':' {
		return "file:///" + escaped
	}

	return "file://" + escaped
}
