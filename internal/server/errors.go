package server

import (
	"errors"
	"net/http"

	"github.com/idilsaglam/todolist/internal/store"
)

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Error constructors.
var (
	errNotFound = func(msg string) *AppError {
		return &AppError{Code: "NOT_FOUND", Message: msg, Status: http.StatusNotFound}
	}
	errBadRequest = func(msg string) *AppError {
		return &AppError{Code: "BAD_REQUEST", Message: msg, Status: http.StatusBadRequest}
	}
	errInternal = func(msg string) *AppError {
		return &AppError{Code: "INTERNAL", Message: msg, Status: http.StatusInternalServerError}
	}
)

// fromStoreError maps store sentinels onto the HTTP error envelope.
func fromStoreError(err error) *AppError {
	switch {
	case errors.Is(err, store.ErrDuplicateEmptyEntry):
		return &AppError{Code: "DUPLICATE_EMPTY_ENTRY", Message: err.Error(), Status: http.StatusConflict}
	case errors.Is(err, store.ErrEmptyTitle):
		return &AppError{Code: "EMPTY_TITLE", Message: err.Error(), Status: http.StatusBadRequest}
	case errors.Is(err, store.ErrNotFound):
		return errNotFound(err.Error())
	default:
		return errInternal(err.Error())
	}
}
