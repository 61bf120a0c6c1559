package ulid

import (
	"github.com/oklog/ulid/v2"
)

// NewULID returns a fresh ULID string. ULIDs sort lexicographically by
// creation time, which is why dead-letter keys and request ids use them.
// Declared as a var so tests can pin it.
var NewULID = func() string {
	return ulid.Make().String()
}
