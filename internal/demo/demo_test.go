package demo

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declarest/declarest/internal/config"
	"github.com/declarest/declarest/internal/testutil"
	"github.com/declarest/declarest/pkg/registry"
)

func TestSpecs_AllValidAndBound(t *testing.T) {
	bindings := Bindings()
	defaults := DefaultGroups()

	for _, spec := range Specs() {
		require.NoError(t, spec.Validate())

		group, bound := bindings[spec.Name]
		require.True(t, bound, "spec %q has no group binding", spec.Name)
		_, configured := defaults[group]
		assert.True(t, configured, "group %q has no default settings", group)
	}
}

func TestAssemble_ConfigOverridesDefaults(t *testing.T) {
	posts := testutil.NewPostsServer()
	defer posts.Close()
	comments := testutil.NewCommentsServer()
	defer comments.Close()

	cfg := config.NewConfig()
	cfg.Groups[GroupJSONPlaceholder] = config.GroupSettings{BaseURL: posts.URL}
	cfg.Groups[GroupAsyncComments] = config.GroupSettings{BaseURL: comments.URL, Engine: "async"}

	reg, err := Assemble(context.Background(), zerolog.New(io.Discard), cfg)
	require.NoError(t, err)
	defer reg.Shutdown()

	// Overridden groups hit the test servers; dummyjson fell back to defaults.
	group, ok := reg.Group(GroupJSONPlaceholder)
	require.True(t, ok)
	assert.Equal(t, posts.URL, group.BaseURL)

	group, ok = reg.Group(GroupDummyJSON)
	require.True(t, ok)
	assert.Equal(t, "https://dummyjson.com", group.BaseURL)

	proxy, err := reg.Proxy("posts")
	require.NoError(t, err)

	var got []Post
	require.NoError(t, proxy.Call(context.Background(), "list", registry.Args{}, &got))
	assert.Len(t, got, 2)
	assert.EqualValues(t, 1, posts.Hits())
}

func TestAssemble_AsyncGroupUsesAsyncEngine(t *testing.T) {
	comments := testutil.NewCommentsServer()
	defer comments.Close()

	cfg := config.NewConfig()
	cfg.Groups[GroupAsyncComments] = config.GroupSettings{BaseURL: comments.URL, Engine: "async"}

	reg, err := Assemble(context.Background(), zerolog.New(io.Discard), cfg)
	require.NoError(t, err)
	defer reg.Shutdown()

	proxy, err := reg.Proxy("comments")
	require.NoError(t, err)
	assert.Equal(t, registry.EngineAsync, proxy.Kind())

	var got []Comment
	deferred := proxy.Go(context.Background(), "list", registry.Args{}, &got)
	require.NoError(t, deferred.Wait(context.Background()))
	assert.NotEmpty(t, got)
}

func TestAssemble_RejectsUnknownEngine(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Groups[GroupJSONPlaceholder] = config.GroupSettings{BaseURL: "https://a.example.test", Engine: "reactive"}

	_, err := Assemble(context.Background(), zerolog.New(io.Discard), cfg)
	require.Error(t, err)
	assert.True(t, registry.IsType(err, registry.ErrorTypeConfig))
}

func TestAssemble_RejectsUnknownTransport(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Groups[GroupJSONPlaceholder] = config.GroupSettings{BaseURL: "https://a.example.test", Transport: "carrier-pigeon"}

	_, err := Assemble(context.Background(), zerolog.New(io.Discard), cfg)
	require.Error(t, err)
	assert.True(t, registry.IsType(err, registry.ErrorTypeConfig))
}
