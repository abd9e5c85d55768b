package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// newBuildInfo fills in the commit from the embedded VCS stamp when the
// binary was built without -ldflags.
func newBuildInfo(version, commit, date string) buildInfo {
	if commit == "" || commit == "none" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					commit = s.Value
				}
			}
		}
	}
	return buildInfo{
		Version:   version,
		Commit:    commit,
		Built:     date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func newVersionCmd(version, commit, date string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(newBuildInfo(version, commit, date), jsonOutput, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	return cmd
}

func printVersion(info buildInfo, jsonOutput bool, out io.Writer) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(out, "mapgame %s\n", info.Version)
	fmt.Fprintf(out, "  commit:  %s\n", info.Commit)
	fmt.Fprintf(out, "  built:   %s\n", info.Built)
	fmt.Fprintf(out, "  go:      %s\n", info.GoVersion)
	fmt.Fprintf(out, "  os/arch: %s/%s\n", info.OS, info.Arch)
	return nil
}
