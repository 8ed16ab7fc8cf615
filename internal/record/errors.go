package record

import "errors"

var (
	ErrJSONUnmarshalFailed = errors.New("failed to unmarshal row json")
	ErrMissingColumn       = errors.New("row is missing a required column")
	ErrInvalidDate         = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvertedDateRange   = errors.New("startDate must not be after endDate")
)
