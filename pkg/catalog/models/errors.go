package models

import "errors"

// Common errors for catalog and queue operations.
var (
	// Image errors
	ErrImageNotFound  = errors.New("image not found")
	ErrDuplicateImage = errors.New("image already exists")
	ErrInvalidFormat  = errors.New("unsupported image format")

	// Category errors
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category already exists")

	// Task errors
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskExists   = errors.New("a pending or processing task already exists for this image")

	// Cache errors
	ErrResultNotFound = errors.New("cached result not found")
)
