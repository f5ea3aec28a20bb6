package loader

import "errors"

var (
	// ErrRestoreExhausted is reported when every scroll restoration attempt of a top-load failed.
	ErrRestoreExhausted = errors.New("scroll restoration attempts exhausted")
	ErrNoSource         = errors.New("item source is not configured")
)
