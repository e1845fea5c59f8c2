package service

import "chargemap/backend/services/station-sync/internal/apperr"

func errorCode(err error) string {
	if code := apperr.CodeOf(err); code != "" {
		return string(code)
	}
	return string(apperr.CodeServerError)
}
