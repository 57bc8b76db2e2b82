package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInitLogger(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	require.NoError(t, InitLogger(&LogConfig{Level: "debug", Environment: "production", ServiceName: "test"}))
	assert.NotNil(t, GetLogger())
	require.NoError(t, InitLogger(&LogConfig{Level: "bogus", Environment: "development", ServiceName: "test"}))
	assert.NotNil(t, GetLogger())
}

func TestFromCtxFallsBackToGlobal(t *testing.T) {
	assert.Same(t, GetLogger(), FromCtx(context.Background()))

	l := zaptest.NewLogger(t)
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromCtx(ctx))
}

func TestFromContextPrefersEchoValue(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Same(t, GetLogger(), FromContext(c))

	l := zaptest.NewLogger(t)
	c.Set(EchoKey, l)
	assert.Same(t, l, FromContext(c))
}
