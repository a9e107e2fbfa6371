// Package transport provides alternative engine transports for groups
// whose targets are not reachable over plain HTTP.
package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// LambdaInvoker is the slice of the Lambda API the transport needs.
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Lambda is an http.RoundTripper that serves lambda:// URLs by invoking
// the named function with an API Gateway v2 proxy event. Assign it to a
// group's Transport to route that group through Lambda instead of HTTP;
// the group's base URL then names the function: lambda://my-function.
type Lambda struct {
	invoker LambdaInvoker
}

// NewLambda builds a Lambda transport from the default AWS credential
// chain.
func NewLambda(ctx context.Context) (*Lambda, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Lambda{invoker: lambda.NewFromConfig(cfg)}, nil
}

// NewLambdaWithInvoker builds a Lambda transport around a custom invoker.
func NewLambdaWithInvoker(invoker LambdaInvoker) *Lambda {
	return &Lambda{invoker: invoker}
}

// RoundTrip implements http.RoundTripper for lambda:// requests.
func (l *Lambda) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "lambda" {
		return nil, fmt.Errorf("lambda transport cannot serve scheme %q", req.URL.Scheme)
	}

	functionName := req.URL.Host
	if functionName == "" {
		return nil, fmt.Errorf("lambda URL missing function name")
	}

	event, err := requestToEvent(req)
	if err != nil {
		return nil, fmt.Errorf("converting request to Lambda event: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshaling Lambda event: %w", err)
	}

	output, err := l.invoker.Invoke(req.Context(), &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("invoking Lambda function: %w", err)
	}
	if output.FunctionError != nil {
		return nil, fmt.Errorf("Lambda function error: %s", *output.FunctionError)
	}

	return responseFromPayload(output.Payload)
}

// requestToEvent converts an http.Request into an API Gateway v2 proxy
// event, the shape HTTP-fronted Lambda functions already understand.
func requestToEvent(req *http.Request) (*events.APIGatewayV2HTTPRequest, error) {
	var body string
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(raw))
		body = string(raw)
	}

	headers := make(map[string]string, len(req.Header))
	for key, values := range req.Header {
		headers[key] = strings.Join(values, ",")
	}

	queryParams := make(map[string]string)
	for key, values := range req.URL.Query() {
		queryParams[key] = strings.Join(values, ",")
	}

	now := time.Now()
	return &events.APIGatewayV2HTTPRequest{
		Version:               "2.0",
		RouteKey:              fmt.Sprintf("%s %s", req.Method, req.URL.Path),
		RawPath:               req.URL.Path,
		RawQueryString:        req.URL.RawQuery,
		Headers:               headers,
		QueryStringParameters: queryParams,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			APIID:      "declarest",
			DomainName: "lambda.local",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    req.Method,
				Path:      req.URL.Path,
				Protocol:  "HTTP/1.1",
				SourceIP:  "127.0.0.1",
				UserAgent: req.Header.Get("User-Agent"),
			},
			RequestID: fmt.Sprintf("declarest-%d", now.UnixNano()),
			RouteKey:  fmt.Sprintf("%s %s", req.Method, req.URL.Path),
			Stage:     "$default",
			Time:      now.Format("02/Jan/2006:15:04:05 -0700"),
			TimeEpoch: now.UnixMilli(),
		},
		Body: body,
	}, nil
}

// responseFromPayload converts a Lambda function's proxy response back
// into an http.Response.
func responseFromPayload(payload []byte) (*http.Response, error) {
	var lambdaRsp events.APIGatewayV2HTTPResponse
	if err := json.Unmarshal(payload, &lambdaRsp); err != nil {
		return nil, fmt.Errorf("parsing Lambda response: %w", err)
	}

	rsp := &http.Response{
		StatusCode: lambdaRsp.StatusCode,
		Status:     fmt.Sprintf("%d %s", lambdaRsp.StatusCode, http.StatusText(lambdaRsp.StatusCode)),
		Header:     make(http.Header),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
	}
	for key, value := range lambdaRsp.Headers {
		rsp.Header.Set(key, value)
	}

	var body []byte
	if lambdaRsp.Body != "" {
		if lambdaRsp.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(lambdaRsp.Body)
			if err != nil {
				return nil, fmt.Errorf("decoding Lambda response body: %w", err)
			}
			body = decoded
		} else {
			body = []byte(lambdaRsp.Body)
		}
	}
	rsp.Body = io.NopCloser(bytes.NewReader(body))
	rsp.ContentLength = int64(len(body))

	return rsp, nil
}
