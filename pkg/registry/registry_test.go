package registry

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declarest/declarest/internal/testutil"
)

func demoGroups(postsURL, commentsURL string) []GroupConfig {
	return []GroupConfig{
		{Name: "jp", BaseURL: postsURL},
		{Name: "async-comments", Engine: EngineAsync, BaseURL: commentsURL},
	}
}

func commentsTestSpec() ServiceSpec {
	return ServiceSpec{
		Name:     "comments",
		BasePath: "/comments",
		Operations: []Operation{
			{
				Name:   "getById",
				Method: MethodGet,
				Path:   "/{id}",
				Params: []ParamBinding{{Name: "id", Source: SourcePath}},
			},
		},
	}
}

func TestInitialize_BuildsOneProxyPerSpec(t *testing.T) {
	posts := testutil.NewPostsServer()
	defer posts.Close()
	comments := testutil.NewCommentsServer()
	defer comments.Close()

	reg, err := Initialize(
		zerolog.New(io.Discard),
		[]ServiceSpec{postsSpec(), commentsTestSpec()},
		demoGroups(posts.URL, comments.URL),
		map[string]string{"posts": "jp", "comments": "async-comments"},
	)
	require.NoError(t, err)
	defer reg.Shutdown()

	assert.Equal(t, []string{"comments", "posts"}, reg.SpecNames())
	assert.Equal(t, []string{"async-comments", "jp"}, reg.GroupNames())

	postsProxy, err := reg.Proxy("posts")
	require.NoError(t, err)
	assert.Equal(t, EngineSync, postsProxy.Kind())

	commentsProxy, err := reg.Proxy("comments")
	require.NoError(t, err)
	assert.Equal(t, EngineAsync, commentsProxy.Kind())

	got, err := Invoke[post](context.Background(), postsProxy, "getById", Args{Path: map[string]string{"id": "1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, got.ID)

	_, err = reg.Proxy("nope")
	require.Error(t, err)
}

func TestInitialize_UnboundSpecIsFatal(t *testing.T) {
	_, err := Initialize(
		zerolog.New(io.Discard),
		[]ServiceSpec{postsSpec()},
		[]GroupConfig{{Name: "jp", BaseURL: "https://api.example.test"}},
		map[string]string{},
	)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeConfig))
}

func TestInitialize_BindingToUnknownGroupIsFatal(t *testing.T) {
	_, err := Initialize(
		zerolog.New(io.Discard),
		[]ServiceSpec{postsSpec()},
		[]GroupConfig{{Name: "jp", BaseURL: "https://api.example.test"}},
		map[string]string{"posts": "missing"},
	)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeConfig))
}

func TestInitialize_DuplicateGroupIsFatal(t *testing.T) {
	_, err := Initialize(
		zerolog.New(io.Discard),
		[]ServiceSpec{postsSpec()},
		[]GroupConfig{
			{Name: "jp", BaseURL: "https://a.example.test"},
			{Name: "jp", BaseURL: "https://b.example.test"},
		},
		map[string]string{"posts": "jp"},
	)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeConfig))
}

func TestInitialize_DuplicateSpecIsFatal(t *testing.T) {
	_, err := Initialize(
		zerolog.New(io.Discard),
		[]ServiceSpec{postsSpec(), postsSpec()},
		[]GroupConfig{{Name: "jp", BaseURL: "https://a.example.test"}},
		map[string]string{"posts": "jp"},
	)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeConfig))
}

func TestShutdown_Idempotent(t *testing.T) {
	reg, err := Initialize(
		zerolog.New(io.Discard),
		[]ServiceSpec{postsSpec()},
		[]GroupConfig{{Name: "jp", BaseURL: "https://api.example.test"}},
		map[string]string{"posts": "jp"},
	)
	require.NoError(t, err)

	reg.Shutdown()
	reg.Shutdown()
}

func TestInitialize_FrozenAfterStartup(t *testing.T) {
	reg, err := Initialize(
		zerolog.New(io.Discard),
		[]ServiceSpec{postsSpec()},
		[]GroupConfig{{Name: "jp", BaseURL: "https://api.example.test"}},
		map[string]string{"posts": "jp"},
	)
	require.NoError(t, err)
	defer reg.Shutdown()

	err = reg.groups.DefineGroup(GroupConfig{Name: "late", BaseURL: "https://b.example.test"})
	require.Error(t, err)
}
