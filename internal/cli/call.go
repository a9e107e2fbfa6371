package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/declarest/declarest/internal/config"
	"github.com/declarest/declarest/internal/demo"
	"github.com/declarest/declarest/pkg/registry"
)

// CallHandler handles one-off invocations of a registered operation
type CallHandler struct {
	logger zerolog.Logger
}

// NewCallHandler creates a new call command handler
func NewCallHandler(logger zerolog.Logger) *CallHandler {
	return &CallHandler{
		logger: logger.With().Str("handler", "call").Logger(),
	}
}

// Execute invokes one operation: `declarest call <spec> <operation>`
// with path arguments as key=value positionals.
func (h *CallHandler) Execute(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return registry.New(registry.ErrorTypeConfig, "usage: call <spec> <operation> [name=value ...]")
	}
	specName, operation := args[0], args[1]

	cfg, err := config.LoadFromFlags(cmd.Flags())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	callArgs, err := parseCallArgs(cmd, args[2:])
	if err != nil {
		return err
	}

	reg, err := demo.Assemble(cmd.Context(), h.logger, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("registry initialization failed")
		return err
	}
	defer reg.Shutdown()

	proxy, err := reg.Proxy(specName)
	if err != nil {
		return err
	}

	h.logger.Debug().
		Str("spec", specName).
		Str("operation", operation).
		Str("engine", string(proxy.Kind())).
		Msg("invoking operation")

	var out json.RawMessage
	if proxy.Kind() == registry.EngineAsync {
		deferred := proxy.Go(cmd.Context(), operation, callArgs, &out)
		err = deferred.Wait(cmd.Context())
	} else {
		err = proxy.Call(cmd.Context(), operation, callArgs, &out)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// parseCallArgs binds positionals to path parameters and the -p / -H / -d
// flags to query, header and body arguments.
func parseCallArgs(cmd *cobra.Command, positionals []string) (registry.Args, error) {
	args := registry.Args{
		Path:   make(map[string]string),
		Query:  url.Values{},
		Header: make(map[string]string),
	}

	for _, positional := range positionals {
		parts := strings.SplitN(positional, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return args, registry.Newf(registry.ErrorTypeConfig, "path argument %q is not name=value", positional)
		}
		args.Path[parts[0]] = parts[1]
	}

	params, err := cmd.Flags().GetStringSlice("param")
	if err != nil {
		return args, registry.Wrap(err, registry.ErrorTypeConfig, "failed to get param flag")
	}
	for _, param := range params {
		parts := strings.SplitN(param, "=", 2)
		if len(parts) == 2 {
			args.Query.Add(parts[0], parts[1])
		} else if parts[0] != "" {
			args.Query.Add(parts[0], "")
		}
	}

	headers, err := cmd.Flags().GetStringSlice("header")
	if err != nil {
		return args, registry.Wrap(err, registry.ErrorTypeConfig, "failed to get header flag")
	}
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			args.Header[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	data, err := cmd.Flags().GetString("data")
	if err != nil {
		return args, registry.Wrap(err, registry.ErrorTypeConfig, "failed to get data flag")
	}
	if data != "" {
		args.Body = json.RawMessage(data)
	}

	return args, nil
}
