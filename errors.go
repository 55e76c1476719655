package pixmap

import "errors"

var (
	// ErrInvalidThreshold is returned when a threshold is not an integer in [0, 255].
	ErrInvalidThreshold = errors.New("threshold must be an integer between 0 and 255")
	// ErrNotGreyscale is returned when a decoded image has more than one channel.
	ErrNotGreyscale = errors.New("image is not greyscale")
	ErrEmptyGrid    = errors.New("grid has no pixels")
	ErrJaggedGrid   = errors.New("grid rows have different lengths")
	// ErrInvalidName is returned when a declaration name is not a valid identifier.
	ErrInvalidName = errors.New("invalid identifier")
	// ErrUnknownVariable is returned when a declaration template references a name it cannot be given.
	ErrUnknownVariable = errors.New("unknown template variable")
)
