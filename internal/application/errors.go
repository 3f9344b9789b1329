package application

import (
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

// Error codes carried by every error the Service returns.
const (
	CodeValidation     = "VALIDATION"
	CodeConflict       = "CONFLICT"
	CodeAuthentication = "AUTHENTICATION"
	CodeToken          = "TOKEN"
	CodeInfrastructure = "INFRASTRUCTURE"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgInvalidToken       = "invalid or expired token"
	msgUnauthorized       = "unauthorized"
	msgInternal           = "internal server error"
)

func validationError(op, format string, args ...any) error {
	return oops.Code(CodeValidation).In("auth").With("operation", op).Errorf(format, args...)
}

func conflictError(op, email string) error {
	return oops.Code(CodeConflict).In("auth").With("operation", op).With("email", email).
		Errorf("user with this email already exists")
}

func authenticationError(op string) error {
	return oops.Code(CodeAuthentication).In("auth").With("operation", op).Errorf(msgInvalidCredentials)
}

func unauthorizedError(op string) error {
	return oops.Code(CodeAuthentication).In("auth").With("operation", op).Errorf(msgUnauthorized)
}

func tokenError(op string) error {
	return oops.Code(CodeToken).In("auth").With("operation", op).Errorf(msgInvalidToken)
}

func infraError(op string, err error) error {
	return oops.Code(CodeInfrastructure).In("auth").With("operation", op).Wrap(err)
}

// CodeOf returns the error code of err, or CodeInfrastructure for errors the
// Service did not classify.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := fmt.Sprint(oopsErr.Code()); code != "" && code != "<nil>" {
			return code
		}
	}
	return CodeInfrastructure
}

// HTTPStatus maps err to its response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeConflict, CodeToken:
		return http.StatusBadRequest
	case CodeAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the client-facing text for err. Infrastructure faults
// never leak their cause.
func PublicMessage(err error) string {
	switch CodeOf(err) {
	case CodeValidation, CodeConflict, CodeAuthentication:
		if oopsErr, ok := oops.AsOops(err); ok {
			return oopsErr.Error()
		}
		return err.Error()
	case CodeToken:
		return msgInvalidToken
	default:
		return msgInternal
	}
}
