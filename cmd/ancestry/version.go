package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// shortCommitLength is the number of hex digits shown of a commit hash.
const shortCommitLength = 7

// buildInfo describes the running binary.
type buildInfo struct {
	Version string
	Commit  string
	Date    string
}

// readBuildInfo resolves the build information.
// Priority: ldflags > debug.ReadBuildInfo > placeholder.
func readBuildInfo() buildInfo {
	info := buildInfo{Version: version, Commit: commit, Date: date}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" {
			info.Version = bi.Main.Version
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = setting.Value
				}
			case "vcs.time":
				if info.Date == "" {
					info.Date = setting.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = "(devel)"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if len(info.Commit) > shortCommitLength && info.Commit != "unknown" {
		info.Commit = info.Commit[:shortCommitLength]
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}

// getVersion returns the version string.
func getVersion() string {
	return readBuildInfo().Version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of ancestry.`,
		Run: func(cmd *cobra.Command, _ []string) {
			info := readBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "ancestry version %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", info.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", info.Date)
		},
	}
}
