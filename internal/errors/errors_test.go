package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderError_Error(t *testing.T) {
	err := NewStoreNotFound("shop.example.com")
	assert.Equal(t, "[STORE_NOT_FOUND] no store found for domain: shop.example.com", err.Error())

	wrapped := NewRenderError("layout failed", fmt.Errorf("boom"))
	assert.Equal(t, "[RENDER_ERROR] layout failed: boom", wrapped.Error())
}

func TestRenderError_UnwrapAndAs(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := fmt.Errorf("loading page: %w", NewDataError("product fetch failed", cause))

	re, ok := AsRenderError(err)
	require.True(t, ok)
	assert.Equal(t, ErrData, re.Type)
	assert.Equal(t, 500, re.StatusCode)
	assert.Equal(t, cause, re.Unwrap())
}

func TestIsType(t *testing.T) {
	assert.True(t, IsType(NewStoreNotActive("x"), ErrStoreNotActive))
	assert.False(t, IsType(NewStoreNotActive("x"), ErrStoreNotFound))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrRender))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewTemplateNotFound("templates/index.liquid", nil)))
	assert.True(t, IsNotFound(NewDataNotFound("product not found: red-shirt")))
	assert.False(t, IsNotFound(NewDataError("db down", nil)))
	assert.False(t, IsNotFound(fmt.Errorf("plain")))
}

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, 404, NewStoreNotFound("d").StatusCode)
	assert.Equal(t, 402, NewStoreNotActive("d").StatusCode)
	assert.Equal(t, 404, NewTemplateNotFound("p", nil).StatusCode)
	assert.Equal(t, 500, NewRenderError("m", nil).StatusCode)
}

func TestWithDetail(t *testing.T) {
	err := NewTemplateNotFound("sections/hero.liquid", nil).WithDetail("store", "s1")
	assert.Equal(t, "sections/hero.liquid", err.Details["path"])
	assert.Equal(t, "s1", err.Details["store"])
}

func TestWrap(t *testing.T) {
	typed := NewStoreNotFound("d")
	assert.Same(t, typed, Wrap(typed, "ignored"))

	plain := Wrap(fmt.Errorf("boom"), "render failed")
	assert.Equal(t, ErrRender, plain.Type)
	assert.Equal(t, "render failed", plain.Message)
}
