// Package gin wraps the gin-gonic engine, so the configuration and
// command packages can instantiate it with the desired middlewares
// without depending on the gin-gonic packages directly.
package gin

import (
	"log/slog"

	ginslog "github.com/FabienMht/ginslog/logger"
	"github.com/gin-gonic/gin"
)

type HandlerFunc = gin.HandlerFunc
type Engine = gin.Engine

func New(middlewares ...HandlerFunc) *Engine {
	e := gin.New()
	e.Use(middlewares...)
	return e
}

// Logger returns a middleware which logs the requests with l.
func Logger(l *slog.Logger) HandlerFunc {
	return ginslog.New(l)
}

func Recovery() HandlerFunc {
	return gin.Recovery()
}
