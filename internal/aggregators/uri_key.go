package aggregators

// uriDelimiters separate URI hierarchy segments: path separators and query parameters.
const uriDelimiters = "/?&"

// DeriveKey truncates uri to its first level hierarchy segments.
//
// Segments are separated by any of '/', '?' and '&'. The key is the prefix of uri that
// ends right before the (level+1)-th delimiter, or uri itself when it has at most level
// delimiters. Keys are always prefixes of uri and DeriveKey(DeriveKey(u, l), l) equals
// DeriveKey(u, l).
func DeriveKey(uri string, level int) string {
	seen := 0
	for i := 0; i < len(uri); i++ {
		if !isURIDelimiter(uri[i]) {
			continue
		}
		seen++
		if seen > level {
			return uri[:i]
		}
	}
	return uri
}

func isURIDelimiter(b byte) bool {
	return b == uriDelimiters[0] || b == uriDelimiters[1] || b == uriDelimiters[2]
}
