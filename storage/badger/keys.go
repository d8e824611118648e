package badger

import "strings"

// Key prefixes for data the store keeps next to the documents. Document
// keys are chosen by the caller and must not start with sysPrefix.
const (
	sysPrefix      = "_sys:"
	vectorPrefix   = sysPrefix + "vec:"
	indexDefPrefix = sysPrefix + "idx:"
)

// makeVectorKey generates the key of the packed vector of a document.
// Format: _sys:vec:documentKey
func makeVectorKey(docKey string) []byte {
	return []byte(vectorPrefix + docKey)
}

// makeIndexDefKey generates the key of an index definition.
// Format: _sys:idx:name
func makeIndexDefKey(name string) []byte {
	return []byte(indexDefPrefix + name)
}

// isSystemKey reports whether key belongs to the store itself.
func isSystemKey(key []byte) bool {
	return strings.HasPrefix(string(key), sysPrefix)
}
