package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

type fakeProvider struct{ id string }

func (f fakeProvider) ID() string { return f.id }

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry[fakeProvider]()

	require.NoError(t, reg.Register(fakeProvider{id: "fs"}))
	require.NoError(t, reg.Register(fakeProvider{id: "s3"}))

	got, err := reg.Get("fs")
	require.NoError(t, err)
	assert.Equal(t, "fs", got.ID())

	assert.Equal(t, []string{"fs", "s3"}, reg.ListIDs())
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry[fakeProvider]()
	_, err := reg.Get("nope")
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.InvalidProvider, code)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	reg := NewRegistry[fakeProvider]()
	require.NoError(t, reg.Register(fakeProvider{id: "fs"}))
	err := reg.Register(fakeProvider{id: "fs"})
	require.Error(t, err)
	code, _ := apperr.CodeOf(err)
	assert.Equal(t, apperr.AlreadyExists, code)
}

func TestRegistry_EmptyID(t *testing.T) {
	reg := NewRegistry[fakeProvider]()
	err := reg.Register(fakeProvider{id: ""})
	require.Error(t, err)
}
