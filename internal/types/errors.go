package types

import "errors"

var (
	// ErrNotFound is returned by repositories when a key has no stored value.
	ErrNotFound = errors.New("not found")
	// ErrStorageCorrupt marks persisted content that could not be decoded.
	ErrStorageCorrupt = errors.New("storage content is corrupt")
	// ErrTranslation wraps any failure of the translation collaborator.
	ErrTranslation = errors.New("translation failed")
	// ErrEmptyPreferences is returned when the user sent no usable text.
	ErrEmptyPreferences = errors.New("preferences text is empty")
	// ErrGeneration wraps failures of the generative-text collaborator.
	ErrGeneration = errors.New("text generation failed")
)
