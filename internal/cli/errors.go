package cli

import (
	"errors"

	"github.com/dmitrijs2005/blockpass/internal/common"
)

// describeError turns a service error into the message shown to the user.
// Each sentinel gets its own wording so the outcomes are never conflated.
func describeError(err error) string {
	switch {
	case errors.Is(err, common.ErrorConflict):
		return "Username is already taken, choose another one"
	case errors.Is(err, common.ErrorUnauthenticated):
		return "Not authenticated: wrong credentials or expired session, please log in"
	case errors.Is(err, common.ErrorAuthenticationFailure):
		return "Wrong master password"
	case errors.Is(err, common.ErrorNotFound):
		return "Item not found"
	case errors.Is(err, common.ErrorInvalidInput):
		return "Invalid input: " + err.Error()
	}
	return "Error: " + err.Error()
}
