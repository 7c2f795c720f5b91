// Command cursor-voice runs the voice-command daemon and talks to it.
//
// Usage:
//
//	cursor-voice serve [--config path]
//	cursor-voice start | stop | status | history | watch
//	cursor-voice inspect [session-id]
//	cursor-voice config check | lock | show
//	cursor-voice version [--json]
//
// Client commands reach the daemon's control API. The API URL and key come
// from --api-url/--api-key, then $CURSOR_VOICE_API_URL/$CURSOR_VOICE_API_KEY,
// then the discovered config file.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	apiURL     string
	apiKey     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "cursor-voice",
		Short: "Voice commands for the code editor",
		Long: `cursor-voice turns a live speech transcript into editor commands.

"cursor-voice serve" runs the daemon: it serves the recognizer page, matches
final transcripts against the command table and drives the editor and chat
panel. The other commands talk to a running daemon over its control API.

Examples:
  # Run the daemon, then open the recognizer page it prints
  cursor-voice serve --config ./config.yaml

  # Toggle listening from a script or key binding
  cursor-voice start
  cursor-voice stop

  # Follow transcripts and commands live
  cursor-voice watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file or directory")
	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "daemon API URL (default from config)")
	root.PersistentFlags().StringVar(&flags.apiKey, "api-key", "", "API bearer token (default from config)")

	root.AddCommand(
		newServeCmd(flags),
		newStartCmd(flags),
		newStopCmd(flags),
		newStatusCmd(flags),
		newHistoryCmd(flags),
		newInspectCmd(flags),
		newWatchCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)
	return root
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func newVersionCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout(), currentVersionInfo(), jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output version metadata as JSON")
	return cmd
}

func printVersion(w io.Writer, info versionInfo, jsonOut bool) error {
	if jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("render version JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintf(w, "cursor-voice %s\ncommit: %s\nbuilt_at: %s\n", info.Version, info.Commit, info.BuildTime)
	return err
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = readBuildSetting("vcs.revision")
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = readBuildSetting("vcs.time")
	}
	if t, ok := normalizeBuildTimeUTC(built); ok {
		info.BuildTime = t
	}
	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return strings.TrimSpace(setting.Value)
		}
	}
	return ""
}
