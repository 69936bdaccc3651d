package api

import (
	"net/http"

	"github.com/YaleSpinup/stars-api/apierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// handleError maps apierror codes onto http status codes and writes the error message
func handleError(w http.ResponseWriter, err error) {
	log.Error(err.Error())

	if aerr, ok := errors.Cause(err).(apierror.Error); ok {
		switch aerr.Code {
		case apierror.ErrForbidden:
			w.WriteHeader(http.StatusForbidden)
		case apierror.ErrNotFound:
			w.WriteHeader(http.StatusNotFound)
		case apierror.ErrConflict:
			w.WriteHeader(http.StatusConflict)
		case apierror.ErrBadRequest:
			w.WriteHeader(http.StatusBadRequest)
		case apierror.ErrLimitExceeded:
			w.WriteHeader(http.StatusTooManyRequests)
		case apierror.ErrNotImplemented:
			w.WriteHeader(http.StatusNotImplemented)
		case apierror.ErrServiceUnavailable:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
		w.Write([]byte(aerr.Message))
	} else {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
	}
}
