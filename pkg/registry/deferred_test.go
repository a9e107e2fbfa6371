package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declarest/declarest/internal/testutil"
)

func TestGo_CompletesWithDecodedValue(t *testing.T) {
	server := testutil.NewPostsServer()
	defer server.Close()

	cfg := GroupConfig{Name: "async", Engine: EngineAsync, BaseURL: server.URL}
	proxy := buildTestProxy(t, cfg, postsSpec())

	var got post
	deferred := proxy.Go(context.Background(), "getById", Args{Path: map[string]string{"id": "1"}}, &got)

	require.NoError(t, deferred.Wait(context.Background()))
	assert.Equal(t, post{UserID: 1, ID: 1, Title: "t", Body: "b"}, got)
	assert.NoError(t, deferred.Err())
}

func TestGo_DeliversErrorsThroughHandle(t *testing.T) {
	server := testutil.NewStatusServer(404, `{"error":"gone"}`)
	defer server.Close()

	cfg := GroupConfig{Name: "async", Engine: EngineAsync, BaseURL: server.URL}
	proxy := buildTestProxy(t, cfg, postsSpec())

	var got post
	deferred := proxy.Go(context.Background(), "getById", Args{Path: map[string]string{"id": "9"}}, &got)

	err := deferred.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeRemote))
	assert.Equal(t, 404, StatusOf(err))
}

func TestGo_CancelBeforeResponseInvokesNoContinuation(t *testing.T) {
	server := testutil.NewSlowServer(5*time.Second, `{"id":1,"userId":1,"title":"t","body":"b"}`)
	defer server.Close()

	cfg := GroupConfig{Name: "async", Engine: EngineAsync, BaseURL: server.URL}
	proxy := buildTestProxy(t, cfg, postsSpec())

	var got post
	deferred := proxy.Go(context.Background(), "getById", Args{Path: map[string]string{"id": "1"}}, &got)

	deferred.Cancel()

	<-deferred.Done()
	err := deferred.Err()
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeCanceled))
	assert.Equal(t, post{}, got, "output must never be written after cancellation")

	// The outcome is settled: nothing later may overwrite it.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, IsType(deferred.Err(), ErrorTypeCanceled))
	assert.Equal(t, post{}, got)
}

func TestGo_CancelAfterCompletionIsHarmless(t *testing.T) {
	server := testutil.NewPostsServer()
	defer server.Close()

	cfg := GroupConfig{Name: "async", Engine: EngineAsync, BaseURL: server.URL}
	proxy := buildTestProxy(t, cfg, postsSpec())

	var got post
	deferred := proxy.Go(context.Background(), "getById", Args{Path: map[string]string{"id": "1"}}, &got)
	require.NoError(t, deferred.Wait(context.Background()))

	deferred.Cancel()

	assert.NoError(t, deferred.Err(), "a settled outcome is not overwritten by a late cancel")
	assert.Equal(t, 1, got.ID)
}

func TestWait_HonorsCallerContext(t *testing.T) {
	server := testutil.NewSlowServer(5*time.Second, `{}`)
	defer server.Close()

	cfg := GroupConfig{Name: "async", Engine: EngineAsync, BaseURL: server.URL}
	proxy := buildTestProxy(t, cfg, postsSpec())

	deferred := proxy.Go(context.Background(), "list", Args{}, nil)
	defer deferred.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := deferred.Wait(ctx)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeCanceled))
}
