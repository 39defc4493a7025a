package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/roach88/rgxlog/internal/ir"
)

// Version can be overridden at build time with
// -ldflags "-X github.com/roach88/rgxlog/internal/cli.Version=v1.2.3".
var Version = ir.EngineVersion

// VersionInfo is the payload of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	IRVersion string `json:"ir_version"`
	GoVersion string `json:"go_version"`
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("rgxlog %s (ir %s, %s)", v.Version, v.IRVersion, v.GoVersion)
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rgxlog version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: Version, IRVersion: ir.IRVersion, GoVersion: "unknown"}
			if bi, ok := debug.ReadBuildInfo(); ok {
				info.GoVersion = bi.GoVersion
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(info)
		},
	}
}
