package archive

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// FormatDumpFilename expands a strftime pattern against t to name a raw
// archive-channel dump file, the same timestamp-formatting facility the
// teacher's save-audio-to-file path uses for its WAV filenames.
func FormatDumpFilename(pattern string, t time.Time) (string, error) {
	name, err := strftime.Format(pattern, t)
	if err != nil {
		return "", fmt.Errorf("archive: formatting dump filename pattern %q: %w", pattern, err)
	}
	return name, nil
}
