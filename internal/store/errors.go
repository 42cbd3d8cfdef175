package store

import "errors"

var (
	// ErrConnection is returned when the database cannot be opened, pinged
	// or initialized. No card has been read or written when it is returned.
	ErrConnection = errors.New("store connection failed")

	// ErrCardNotFound is returned by ApplyUpdate when the card disappeared
	// between ListRecords and the update.
	ErrCardNotFound = errors.New("card not found")
)
