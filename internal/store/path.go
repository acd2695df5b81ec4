package store

import "strings"

// JoinPath assembles a document or collection path from segments.
func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// SplitPath returns the segments of a path.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// IsDocumentPath reports whether path addresses a document: a non-empty even
// number of non-empty segments.
func IsDocumentPath(path string) bool {
	segs := SplitPath(path)
	if len(segs) == 0 || len(segs)%2 != 0 {
		return false
	}
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}

// DocumentID returns the final segment of a document path.
func DocumentID(path string) string {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// CollectionOf returns the name of the collection a document belongs to,
// i.e. the second-to-last segment of its path.
func CollectionOf(path string) string {
	segs := SplitPath(path)
	if len(segs) < 2 {
		return ""
	}
	return segs[len(segs)-2]
}

// ParentOf returns the path of the collection containing the document.
func ParentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}
