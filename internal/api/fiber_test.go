package api

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

func TestNewFiberApp(t *testing.T) {
	set := registry.NewSet()
	set.Packages.Add(model.NewPackage("busybox", "1.36.1"))

	app, err := NewFiberApp(set, nil, zap.NewNop())
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/packages/busybox@1.36.1", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
