package workspace

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURIToPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}

	tests := []struct {
		uri      string
		expected string
	}{
		{"file:///home/user/top.spin2", "/home/user/top.spin2"},
		{"file:///home/user/my%20project/top.spin2", "/home/user/my project/top.spin2"},
		{"/plain/path.spin2", "/plain/path.spin2"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.expected, URIToPath(tt.uri))
		})
	}
}

func TestPathToURI_RoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}

	assert.Equal(t, "file:///home/user/top.spin2", PathToURI("/home/user/top.spin2"))
	assert.Equal(t, "file:///home/user/my%20project/top.spin2", PathToURI("/home/user/my project/top.spin2"))
	assert.Equal(t, "/home/user/my project/top.spin2", URIToPath(PathToURI("/home/user/my project/top.spin2")))
}
