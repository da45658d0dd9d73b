package prefill

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Failure is the error body sent to the form when a lookup cannot be served.
// Type is a stable machine code; Message is user-facing Spanish.
type Failure struct {
	Type    string `json:"type"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// classify maps a lookup error onto a Failure with an appropriate HTTP status.
func classify(err error) *Failure {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Status {
		case http.StatusUnauthorized:
			return &Failure{
				Type:    "AUTH_ERROR",
				Status:  http.StatusUnauthorized,
				Message: "Error de autenticación con el servicio externo. Contacte al administrador.",
				Error:   "Authentication Error",
			}
		case http.StatusForbidden:
			return &Failure{
				Type:    "ACCESS_DENIED",
				Status:  http.StatusForbidden,
				Message: "Acceso denegado al servicio externo. Su IP podría no estar autorizada.",
				Error:   "Access Denied",
			}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return timeoutFailure()
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return &Failure{
				Type:    "SERVICE_UNAVAILABLE",
				Status:  statusErr.Status,
				Message: "El servicio externo no está disponible. Intente más tarde.",
				Error:   "Service Unavailable",
			}
		default:
			return &Failure{
				Type:    "API_ERROR",
				Status:  statusErr.Status,
				Message: "Error al consultar DPI",
				Error:   "API Error",
			}
		}
	}

	if isTimeout(err) {
		return timeoutFailure()
	}

	var netErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &netErr) || errors.As(err, &dnsErr) {
		return &Failure{
			Type:    "CONNECTION_ERROR",
			Status:  http.StatusServiceUnavailable,
			Message: "No se puede conectar al servicio externo. Verifique su conexión.",
			Error:   "Connection Error",
		}
	}

	return &Failure{
		Type:    "API_ERROR",
		Status:  http.StatusInternalServerError,
		Message: "Error al consultar DPI",
		Error:   "API Error",
	}
}

func timeoutFailure() *Failure {
	return &Failure{
		Type:    "TIMEOUT",
		Status:  http.StatusRequestTimeout,
		Message: "La conexión con el servicio externo tardó demasiado. Intente nuevamente.",
		Error:   "Timeout",
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
