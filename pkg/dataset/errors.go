package dataset

import "errors"

// Load-time errors. Any of these aborts startup.
var (
	ErrMissingColumn      = errors.New("required column missing")
	ErrInvalidDate        = errors.New("invalid sale date")
	ErrInvalidNumber      = errors.New("invalid numeric value")
	ErrEmptySource        = errors.New("dataset source contains no header row")
	ErrUnsupportedSource  = errors.New("unsupported dataset source")
	ErrNoPaths            = errors.New("file source requires at least one path")
	ErrRedisKeyRequired   = errors.New("redis source requires a key")
	ErrUnknownFacet       = errors.New("unknown facet")
	ErrSaleDateColumn     = errors.New("sale date column name is required")
	ErrCategoryColumn     = errors.New("category column name is required")
	ErrInvalidDelimiter   = errors.New("csv delimiter must be a single character")
	ErrNoDateLayouts      = errors.New("at least one date layout is required")
	ErrUnsupportedFileExt = errors.New("unsupported file extension")
)
