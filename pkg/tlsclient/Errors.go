package tlsclient

import "fmt"

// UnauthorizedError is returned when a service responds with HTTP 401.
// The credentials or refresh token are invalid and the user must login again.
type UnauthorizedError struct {
	// URL of the failed request
	URL string
	// Status text of the response
	Status string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Status)
}

// ResponseError is returned when a service responds with HTTP status 400 or higher,
// other than 401. The message includes the status text of the response.
type ResponseError struct {
	// URL of the failed request
	URL string
	// StatusCode of the response, 400 or higher
	StatusCode int
	// Status text of the response
	Status string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("request failed: %s", e.Status)
}

// NetworkError is returned when the service cannot be reached at the transport
// level, for example the connection is refused or times out.
type NetworkError struct {
	// URL of the failed request
	URL string
	// Err with the underlying transport error
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("unable to reach %s: %s", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
