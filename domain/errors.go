package domain

import "errors"

// ErrorClass groups error codes by how a caller should react to them.
type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassValidation
	ClassAuth
	ClassNotFound
	ClassConflict
)

// CodedError is an error that carries the wire code sent back to clients.
type CodedError struct {
	Code  string
	Class ErrorClass
}

func (e *CodedError) Error() string {
	return e.Code
}

var (
	ErrMissingStatus    = &CodedError{Code: "MissingStatus", Class: ClassValidation}
	ErrInvalidStatus    = &CodedError{Code: "InvalidStatus", Class: ClassValidation}
	ErrInvalidTimestamp = &CodedError{Code: "InvalidTimestamp", Class: ClassValidation}
	ErrMissingTarget    = &CodedError{Code: "MissingTargetNPID", Class: ClassValidation}
	ErrMissingGroup     = &CodedError{Code: "MissingGroup", Class: ClassValidation}
	ErrInvalidGroup     = &CodedError{Code: "InvalidGroup", Class: ClassValidation}
	ErrQueryTooShort    = &CodedError{Code: "QueryTooShort", Class: ClassValidation}
	ErrCannotAddSelf    = &CodedError{Code: "CannotAddYourself", Class: ClassValidation}
	ErrCannotBlockSelf  = &CodedError{Code: "CannotBlockYourself", Class: ClassValidation}

	ErrMissingToken = &CodedError{Code: "MissingToken", Class: ClassAuth}
	ErrInvalidToken = &CodedError{Code: "InvalidToken", Class: ClassAuth}

	ErrUserNotFound = &CodedError{Code: "UserNotFound", Class: ClassNotFound}

	ErrAlreadyFriends     = &CodedError{Code: "AlreadyFriends", Class: ClassConflict}
	ErrRequestAlreadySent = &CodedError{Code: "RequestAlreadySent", Class: ClassConflict}
	ErrNoRequestFound     = &CodedError{Code: "NoRequestFound", Class: ClassConflict}
	ErrNotFriends         = &CodedError{Code: "NotFriends", Class: ClassConflict}
)

// Code returns the wire code of err, or "Internal" for uncoded errors.
func Code(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return "Internal"
}

func ClassOf(err error) ErrorClass {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Class
	}
	return ClassInternal
}
