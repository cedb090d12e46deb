package error

import "net/http"

// CapacityError is returned when the session limit has been reached.
type CapacityError string

func (err CapacityError) Error() string {
	return string(err)
}

func (err CapacityError) ErrCode() string {
	return "CAPACITY_EXCEEDED"
}

func (err CapacityError) StatusCode() int {
	return http.StatusTooManyRequests
}
