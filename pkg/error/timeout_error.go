package error

import "net/http"

// TimeoutError covers delivery and initialization timeouts.
type TimeoutError string

func (err TimeoutError) Error() string {
	return string(err)
}

func (err TimeoutError) ErrCode() string {
	return "TIMEOUT_ERROR"
}

func (err TimeoutError) StatusCode() int {
	return http.StatusGatewayTimeout
}
