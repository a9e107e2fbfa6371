package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	lastInput *lambda.InvokeInput
	output    *lambda.InvokeOutput
	err       error
}

func (f *fakeInvoker) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.lastInput = params
	return f.output, f.err
}

func proxyResponse(t *testing.T, rsp events.APIGatewayV2HTTPResponse) []byte {
	t.Helper()
	payload, err := json.Marshal(rsp)
	require.NoError(t, err)
	return payload
}

func TestRoundTrip_InvokesNamedFunction(t *testing.T) {
	invoker := &fakeInvoker{
		output: &lambda.InvokeOutput{
			Payload: proxyResponse(t, events.APIGatewayV2HTTPResponse{
				StatusCode: 200,
				Headers:    map[string]string{"Content-Type": "application/json"},
				Body:       `{"ok":true}`,
			}),
		},
	}
	transport := NewLambdaWithInvoker(invoker)

	req, err := http.NewRequest(http.MethodGet, "lambda://my-function/posts/1?verbose=1", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")

	rsp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer rsp.Body.Close()

	assert.Equal(t, 200, rsp.StatusCode)
	assert.Equal(t, "application/json", rsp.Header.Get("Content-Type"))
	body, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	require.NotNil(t, invoker.lastInput)
	assert.Equal(t, "my-function", *invoker.lastInput.FunctionName)

	var event events.APIGatewayV2HTTPRequest
	require.NoError(t, json.Unmarshal(invoker.lastInput.Payload, &event))
	assert.Equal(t, "/posts/1", event.RawPath)
	assert.Equal(t, "verbose=1", event.RawQueryString)
	assert.Equal(t, "application/json", event.Headers["Accept"])
	assert.Equal(t, http.MethodGet, event.RequestContext.HTTP.Method)
}

func TestRoundTrip_CarriesRequestBody(t *testing.T) {
	invoker := &fakeInvoker{
		output: &lambda.InvokeOutput{
			Payload: proxyResponse(t, events.APIGatewayV2HTTPResponse{StatusCode: 201}),
		},
	}
	transport := NewLambdaWithInvoker(invoker)

	req, err := http.NewRequest(http.MethodPost, "lambda://writer/posts", strings.NewReader(`{"title":"t"}`))
	require.NoError(t, err)

	rsp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer rsp.Body.Close()

	var event events.APIGatewayV2HTTPRequest
	require.NoError(t, json.Unmarshal(invoker.lastInput.Payload, &event))
	assert.JSONEq(t, `{"title":"t"}`, event.Body)
}

func TestRoundTrip_DecodesBase64Body(t *testing.T) {
	invoker := &fakeInvoker{
		output: &lambda.InvokeOutput{
			Payload: proxyResponse(t, events.APIGatewayV2HTTPResponse{
				StatusCode:      200,
				Body:            base64.StdEncoding.EncodeToString([]byte(`{"id":1}`)),
				IsBase64Encoded: true,
			}),
		},
	}
	transport := NewLambdaWithInvoker(invoker)

	req, err := http.NewRequest(http.MethodGet, "lambda://reader/posts/1", nil)
	require.NoError(t, err)

	rsp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(body))
}

func TestRoundTrip_RejectsForeignSchemes(t *testing.T) {
	transport := NewLambdaWithInvoker(&fakeInvoker{})

	req, err := http.NewRequest(http.MethodGet, "https://api.example.test/posts", nil)
	require.NoError(t, err)

	_, err = transport.RoundTrip(req)
	require.Error(t, err)
}

func TestRoundTrip_MissingFunctionName(t *testing.T) {
	transport := NewLambdaWithInvoker(&fakeInvoker{})

	req, err := http.NewRequest(http.MethodGet, "lambda:///posts", nil)
	require.NoError(t, err)

	_, err = transport.RoundTrip(req)
	require.Error(t, err)
}

func TestRoundTrip_SurfacesFunctionErrors(t *testing.T) {
	fnErr := "Unhandled"
	invoker := &fakeInvoker{
		output: &lambda.InvokeOutput{FunctionError: &fnErr},
	}
	transport := NewLambdaWithInvoker(invoker)

	req, err := http.NewRequest(http.MethodGet, "lambda://my-function/posts", nil)
	require.NoError(t, err)

	_, err = transport.RoundTrip(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unhandled")
}

func TestRoundTrip_SurfacesInvokeErrors(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("throttled")}
	transport := NewLambdaWithInvoker(invoker)

	req, err := http.NewRequest(http.MethodGet, "lambda://my-function/posts", nil)
	require.NoError(t, err)

	_, err = transport.RoundTrip(req)
	require.Error(t, err)
}
