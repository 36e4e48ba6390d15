package services

import (
	"AmberWatch/internal/models"
	apperrors "AmberWatch/pkg/errors"
)

var (
	ErrUnauthorized       = apperrors.New(apperrors.CodeUnauthorized, "sign in required")
	ErrForbidden          = apperrors.New(apperrors.CodeForbidden, "only verified police accounts can do this")
	ErrAlertNotFound      = apperrors.New(apperrors.CodeNotFound, "alert not found")
	ErrPhotoRequired      = apperrors.New(apperrors.CodePhotoRequired, "a photo is required")
	ErrInvalidTransition  = apperrors.New(apperrors.CodeInvalidTransition, "alert status cannot change from its current state")
	ErrVerificationDenied = apperrors.New(apperrors.CodeVerificationDenied, "police id could not be verified")
	ErrBadCredentials     = apperrors.New(apperrors.CodeBadCredentials, "invalid username or password")
	ErrSessionInvalid     = apperrors.New(apperrors.CodeSessionInvalid, "session expired or signed out")
	ErrUsernameTaken      = apperrors.New(apperrors.CodeConflict, "username already taken")
	ErrDuplicateEvidence  = apperrors.New(apperrors.CodeConflict, "evidence object already exists")
	ErrSearchDisabled     = apperrors.New(apperrors.CodeDevice, "search is not enabled")
)

func invalid(msg string) *apperrors.Error {
	return apperrors.WithCode(apperrors.CodeValidation, msg)
}

func backend(err error, msg string) *apperrors.Error {
	return apperrors.Wrap(err, apperrors.CodeBackend, msg)
}

// requireAuthority 只有已核验的警方账号可以变更警报
func requireAuthority(actor *models.Profile) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if !actor.CanManageAlerts() {
		return ErrForbidden
	}
	return nil
}
