package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/seelabs/xrpl-probe/internal/agent/ebpf"
	"github.com/seelabs/xrpl-probe/internal/cli/helpers"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// newCapabilitiesCmd creates the capabilities command.
func newCapabilitiesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Check whether this host can run the kernel probes",
		Long: `Report the kernel version, BTF availability, the BPF capabilities of the
current process and any missing program or map type needed by 'trace'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, []helpers.OutputFormat{helpers.FormatText, helpers.FormatJSON}); err != nil {
				return err
			}
			caps := ebpf.DetectCapabilities(cmd.Context())

			if format == string(helpers.FormatJSON) {
				f, err := helpers.NewFormatter(helpers.FormatJSON)
				if err != nil {
					return err
				}
				return f.Format(caps, cmd.OutOrStdout())
			}
			cmd.Print(renderCapabilities(caps))
			return nil
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatText, []helpers.OutputFormat{
		helpers.FormatText,
		helpers.FormatJSON,
	})
	return cmd
}

func renderCapabilities(c ebpf.Capabilities) string {
	var b strings.Builder
	check := func(name string, ok bool, detail string) {
		mark := okStyle.Render("✓")
		if !ok {
			mark = failStyle.Render("✗")
		}
		b.WriteString(mark + " " + name)
		if detail != "" {
			b.WriteString(": " + detail)
		}
		b.WriteString("\n")
	}

	check("Kernel", c.KernelVersion != "", c.KernelVersion)
	check("BTF", c.BTF, "")
	check("CAP_BPF and CAP_PERFMON (or CAP_SYS_ADMIN)", c.CapBPF, "")
	check("Tracing filesystem", c.TracingDir != "", c.TracingDir)
	check("Program and map types", len(c.Missing) == 0, strings.Join(c.Missing, ", "))

	if c.Supported {
		b.WriteString("\nKernel tracing is supported.\n")
	} else {
		b.WriteString("\nKernel tracing is not available; 'simulate' still works.\n")
	}
	return b.String()
}
