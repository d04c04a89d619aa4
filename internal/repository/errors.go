// Package repository contains the data access layer.  Every table is served
// by a Store instantiated with its table description; resource-specific
// repositories embed a Store and add the few queries that do not fit the
// criteria model.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no live (non-deleted) row.
// Services translate it into a NotFound failure.
var ErrNotFound = errors.New("record not found")

// ErrUnknownColumn is returned when criteria, fields or ordering name a column
// the table does not declare.  Column names are interpolated into SQL, so
// they are never taken on trust.
var ErrUnknownColumn = errors.New("unknown column")

// ErrNoFields is returned by Create and Update when given nothing to write.
var ErrNoFields = errors.New("no fields to write")
