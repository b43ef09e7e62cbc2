package middleware

import (
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

const compressMinSize = 1024

type Compress struct {
	wrap func(http.Handler) http.HandlerFunc
}

// NewCompress gzips responses of at least 1KB for clients that accept it.
// Already compressed content types such as JPEG are passed through.
func NewCompress() (*Compress, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(compressMinSize))
	if err != nil {
		return nil, fmt.Errorf("creating gzip wrapper: %w", err)
	}
	return &Compress{wrap: wrap}, nil
}

func (c *Compress) Apply(next http.Handler) http.Handler {
	return c.wrap(next)
}
