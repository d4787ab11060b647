package retrieval

import "time"

// BuildReport summarizes one Build run.
type BuildReport struct {
	CorpusRoot string        `json:"corpus_root"`
	BuiltAt    time.Time     `json:"built_at"`
	Duration   time.Duration `json:"duration"`

	// Skipped is true when the index was already populated.
	Skipped bool `json:"skipped"`

	// Existing is the entry count found before the build.
	Existing int `json:"existing"`

	Files         int `json:"files"`
	SkippedFiles  int `json:"skipped_files"`
	ReadErrors    int `json:"read_errors"`
	Chunks        int `json:"chunks"`
	Oversized     int `json:"oversized"`
	EmbedFailures int `json:"embed_failures"`
	Indexed       int `json:"indexed"`
}

// Empty reports whether the build finished without indexing anything.
func (r *BuildReport) Empty() bool {
	return !r.Skipped && r.Indexed == 0
}
