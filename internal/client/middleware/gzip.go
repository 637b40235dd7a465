package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// responses too small to be worth compressing. Plain excluded paths match by
// prefix, so exact matches go through regexes.
var uncompressedPaths = []string{`^/$`, `^/v1/sync/now$`}

func Gzip() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs(uncompressedPaths))
}
