package ports

import (
	"context"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
)

// StudyReaderPort loads ordered study records from a tabular source.
// The core does not care about the source format; adapters own parsing.
type StudyReaderPort interface {
	ReadStudies(ctx context.Context) ([]meta.StudyRecord, error)
}
