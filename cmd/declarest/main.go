package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/declarest/declarest/internal/cli"
	"github.com/declarest/declarest/internal/logger"
)

var (
	configPath string
	listenAddr string
	verbose    bool
	logFormat  string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "declarest",
		Short: "Declarative, group-based HTTP client registry",
		Long: `declarest builds HTTP client proxies from declared service specs,
groups them by named configuration profiles, and binds each group to a
sync or async transport engine. The serve command republishes proxy
results over forwarding endpoints; call invokes a single operation.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file with group settings")
	root.PersistentFlags().StringVar(&listenAddr, "listen", ":8080", "listen address for the serve command")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "pretty", "log format: pretty or json")

	log := logger.SetupFromFlags(verbose, logFormat)
	cobra.OnInitialize(func() {
		log = logger.SetupFromFlags(verbose, logFormat)
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forwarding endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewServeHandler(log).Execute(cmd, args)
		},
	}

	callCmd := &cobra.Command{
		Use:   "call <spec> <operation> [name=value ...]",
		Short: "Invoke a single registered operation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewCallHandler(log).Execute(cmd, args)
		},
	}
	callCmd.Flags().StringSliceP("param", "p", []string{}, "Query parameters (can be used multiple times)")
	callCmd.Flags().StringSliceP("header", "H", []string{}, "Pass custom header(s) (can be used multiple times)")
	callCmd.Flags().StringP("data", "d", "", "JSON request body")

	specsCmd := &cobra.Command{
		Use:   "specs",
		Short: "List registered specs, operations and groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewSpecsHandler(log).Execute(cmd, args)
		},
	}

	root.AddCommand(serveCmd, callCmd, specsCmd, completionCmd())
	return root
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 "Generate completion script",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
		},
	}
}
