package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/declarest/declarest/internal/config"
	"github.com/declarest/declarest/internal/demo"
	"github.com/declarest/declarest/pkg/registry"
)

var (
	specTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B47E0")).
			Padding(0, 2)

	methodStyles = map[registry.Method]lipgloss.Style{
		registry.MethodGet: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#61AFEF")).
			Padding(0, 1),
		registry.MethodPost: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#98C379")).
			Padding(0, 1),
		registry.MethodPut: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#E5C07B")).
			Padding(0, 1),
		registry.MethodDelete: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#E06C75")).
			Padding(0, 1),
		registry.MethodPatch: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#C678DD")).
			Padding(0, 1),
	}

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B")).
			Bold(true)

	groupStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#56B6C2"))
)

// SpecsHandler handles the specs listing command
type SpecsHandler struct {
	logger zerolog.Logger
}

// NewSpecsHandler creates a new specs command handler
func NewSpecsHandler(logger zerolog.Logger) *SpecsHandler {
	return &SpecsHandler{
		logger: logger.With().Str("handler", "specs").Logger(),
	}
}

// Execute renders the registered specs, their operations and the groups
// they are bound to.
func (h *SpecsHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFlags(cmd.Flags())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	reg, err := demo.Assemble(cmd.Context(), h.logger, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("registry initialization failed")
		return err
	}
	defer reg.Shutdown()

	fmt.Fprintln(os.Stdout, render(reg, demo.Bindings()))
	return nil
}

func render(reg *registry.Registry, bindings map[string]string) string {
	var out strings.Builder

	for _, name := range reg.SpecNames() {
		spec, _ := reg.Spec(name)
		groupName := bindings[name]
		group, _ := reg.Group(groupName)

		out.WriteString(specTitleStyle.Render(spec.Name))
		out.WriteString("  ")
		out.WriteString(groupStyle.Render(fmt.Sprintf("group=%s engine=%s base=%s", groupName, group.Engine, group.BaseURL)))
		out.WriteString("\n")

		for _, op := range spec.Operations {
			style, ok := methodStyles[op.Method]
			if !ok {
				style = lipgloss.NewStyle()
			}
			out.WriteString("  ")
			out.WriteString(style.Render(string(op.Method)))
			out.WriteString(" ")
			out.WriteString(pathStyle.Render(spec.BasePath + op.Path))
			out.WriteString(fmt.Sprintf("  (%s)", op.Name))
			if len(op.Params) > 0 {
				var params []string
				for _, p := range op.Params {
					params = append(params, fmt.Sprintf("%s:%s", p.Name, p.Source))
				}
				out.WriteString("  [" + strings.Join(params, ", ") + "]")
			}
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}

	return out.String()
}
