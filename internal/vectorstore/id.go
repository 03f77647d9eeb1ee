package vectorstore

import "github.com/google/uuid"

// backendIDNamespace fixes the namespace argument to the deterministic
// id mapping so the mapping is total and reproducible across processes
// and runs. Changing this value would silently remap every existing
// point; it is never configurable.
var backendIDNamespace = uuid.MustParse("6f6e9b0a-6b8f-4e6d-9a8b-6a1b2f9d9e1c")

// mapID deterministically maps a caller-supplied string id to a
// backend-acceptable UUID-shaped id. Same input always produces the
// same output, in this process and every other. The original id is
// never discarded: callers must store it in the payload under "id".
func mapID(id string) string {
	return uuid.NewSHA1(backendIDNamespace, []byte(id)).String()
}
