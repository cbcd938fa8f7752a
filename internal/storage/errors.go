package storage

import "errors"

// ErrPositionNotFound is returned when no open position matches the given id
var ErrPositionNotFound = errors.New("position not found")

// ErrDuplicatePosition is returned when adding a position whose id already exists
var ErrDuplicatePosition = errors.New("position id already exists")
