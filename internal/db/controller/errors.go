// Package controller holds what the entity controllers below it share.
package controller

import "errors"

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")
