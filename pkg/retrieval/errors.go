package retrieval

import "errors"

// ErrCorpusRead wraps per-file corpus failures. They are logged and
// counted, never returned from Build.
var ErrCorpusRead = errors.New("corpus read failed")
