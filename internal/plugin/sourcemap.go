package plugin

import (
	"encoding/base64"
	"path/filepath"
	"regexp"
	"strings"
)

var mappingURL = regexp.MustCompile(`/\*# sourceMappingURL=([^*\s]+) ?\*/\s*$`)

const dataURLPrefix = "data:application/json;"

// PreviousMap returns the source map referenced by the trailing
// sourceMappingURL comment of css, or nil. Inline data URLs are decoded;
// other URLs are resolved next to path and loaded with read. A nil read
// only resolves inline maps.
func PreviousMap(path string, css []byte, read func(string) ([]byte, error)) []byte {
	m := mappingURL.FindSubmatch(css)
	if m == nil {
		return nil
	}

	url := string(m[1])

	if rest, ok := strings.CutPrefix(url, dataURLPrefix); ok {
		rest = strings.TrimPrefix(rest, "charset=utf-8;")

		encoded, ok := strings.CutPrefix(rest, "base64,")
		if !ok {
			return nil
		}

		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil
		}

		return data
	}

	if read == nil || strings.Contains(url, "://") || strings.HasPrefix(url, "data:") {
		return nil
	}

	data, err := read(filepath.Join(filepath.Dir(path), filepath.FromSlash(url)))
	if err != nil {
		return nil
	}

	return data
}
