package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("logs completed requests with request metadata", func(t *testing.T) {
		log, logs := observedLogger()
		engine := gin.New()
		engine.Use(GinMiddleware(log))
		engine.GET("/api/v1/usage", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/usage?window=day", nil))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		fields := fieldMap(entry)
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/api/v1/usage", fields["path"])
		assert.Equal(t, "window=day", fields["query"])
	})

	t.Run("attaches the request logger to the request context", func(t *testing.T) {
		log, logs := observedLogger()
		engine := gin.New()
		engine.Use(GinMiddleware(log))
		engine.GET("/check", func(c *gin.Context) {
			L(c.Request.Context()).Info("admission decided")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/check", nil))

		// One entry from the handler, one completion entry
		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "admission decided", logs.All()[0].Message)
	})

	t.Run("includes the resolved tenant in the completion log", func(t *testing.T) {
		log, logs := observedLogger()
		engine := gin.New()
		engine.Use(GinMiddleware(log))
		engine.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(
				ContextWithTenantID(c.Request.Context(), "tenant-55"))
			c.Next()
		})
		engine.GET("/check", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/check", nil))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "tenant-55", fieldMap(logs.All()[0])["tenant_id"])
	})

	t.Run("elevates log level with the response status", func(t *testing.T) {
		log, logs := observedLogger()
		engine := gin.New()
		engine.Use(GinMiddleware(log))
		engine.GET("/denied", func(c *gin.Context) { c.Status(http.StatusTooManyRequests) })
		engine.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/denied", nil))
		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
		assert.Equal(t, zap.ErrorLevel, logs.All()[1].Level)
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	log, logs := observedLogger()
	engine := gin.New()
	engine.Use(Recovery(log))
	engine.GET("/panic", func(c *gin.Context) {
		panic("counter state corrupted")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns the stored request logger", func(t *testing.T) {
		log, _ := observedLogger()
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("logger", log)

		assert.Same(t, log, GetGinLogger(c))
	})

	t.Run("returns nop logger when none stored", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		assert.NotNil(t, GetGinLogger(c))
	})
}
