package client

import "errors"

var messageKeys = []struct {
	err error
	key string
}{
	{ErrNameRequired, "form.nameRequired"},
	{ErrSheetURLRequired, "form.sheetURLRequired"},
	{ErrHeadersFailed, "form.headersFailed"},
	{ErrMappingIncomplete, "form.mappingIncomplete"},
	{ErrEmailRequired, "form.emailRequired"},
	{ErrUsernameRequired, "form.usernameRequired"},
	{ErrInvalidRole, "form.invalidRole"},
	{ErrSaveFailed, "form.saveFailed"},
	{ErrDeleteFailed, "form.deleteFailed"},
	{ErrUpdateFailed, "form.updateFailed"},
}

// MessageKey returns the pkg/i18n key for a form or view error, so each
// front end renders it in its own language.
func MessageKey(err error) (string, bool) {
	for _, m := range messageKeys {
		if errors.Is(err, m.err) {
			return m.key, true
		}
	}
	return "", false
}
