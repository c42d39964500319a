package source

import "codeberg.org/mutker/healthsync/internal/errors"

const (
	ErrNotAvailable      = errors.ErrorCode("source_not_available")
	ErrPermissionDenied  = errors.ErrorCode("source_permission_denied")
	ErrQueryFailed       = errors.ErrorCode("source_query_failed")
	ErrUnsupportedMetric = errors.ErrorCode("source_unsupported_metric")
	ErrExportRead        = errors.ErrorCode("source_export_read_failed")
)

func unsupported(metric string) Unavailable {
	return Unavailable{
		Reason: "unsupported metric",
		Err:    errors.New().WithMessage(ErrUnsupportedMetric, metric),
	}
}

func queryFailed(err error) Unavailable {
	return Unavailable{
		Reason: "query failed",
		Err:    errors.New().Wrap(ErrQueryFailed, err),
	}
}
