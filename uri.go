package shelf

import "strings"

// parentURI truncates one path segment off an object URI. The truncation is
// deliberately naive (split on "/", drop the last segment): permission
// trees built by existing deployments rely on it.
func parentURI(objectID string) string {
	idx := strings.LastIndex(objectID, "/")
	if idx <= 0 {
		return ""
	}
	return objectID[:idx]
}

// leafID returns the trailing path segment of an object URI, the bare
// object id.
func leafID(objectURI string) string {
	idx := strings.LastIndex(objectURI, "/")
	if idx < 0 {
		return objectURI
	}
	return objectURI[idx+1:]
}
