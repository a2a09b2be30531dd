// utils/http.go
package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewHTTPClient builds the shared outbound client. 2 minutes covers
// large proof uploads to the pinning service.
func NewHTTPClient() *resty.Client {
	return resty.New().SetTimeout(2 * time.Minute)
}
