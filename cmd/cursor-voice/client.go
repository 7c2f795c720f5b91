package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/cursor-voice/internal/api"
	"github.com/mattjoyce/cursor-voice/internal/session"
	"github.com/mattjoyce/cursor-voice/internal/tui/watch"
)

// Environment overrides for client commands.
const (
	EnvAPIURL = "CURSOR_VOICE_API_URL"
	EnvAPIKey = "CURSOR_VOICE_API_KEY"
)

const defaultAPIURL = "http://localhost:7332"

// apiClient calls the daemon's control API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// resolveClient picks the API endpoint from flags, then the environment, then
// the config file. A missing config is not an error here.
func resolveClient(flags *globalFlags) *apiClient {
	url, key := flags.apiURL, flags.apiKey
	if url == "" {
		url = os.Getenv(EnvAPIURL)
	}
	if key == "" {
		key = os.Getenv(EnvAPIKey)
	}
	if url == "" || key == "" {
		if cfg, err := loadConfig(flags.configPath); err == nil {
			if url == "" {
				url = "http://" + cfg.API.Listen
			}
			if key == "" {
				key = cfg.API.Auth.APIKey
			}
		}
	}
	if url == "" {
		url = defaultAPIURL
	}
	return &apiClient{
		baseURL: strings.TrimRight(url, "/"),
		apiKey:  key,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach daemon at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr api.ErrorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func printStatus(w io.Writer, st session.Status) {
	fmt.Fprintf(w, "state: %s\n", st.State)
	if st.SessionID != "" {
		fmt.Fprintf(w, "session: %s\n", st.SessionID)
	}
	fmt.Fprintf(w, "recognizer ready: %t\n", st.SourceReady)
	if st.Unsupported {
		fmt.Fprintln(w, "recognizer: speech recognition unsupported")
	}
	if st.LastDispatch != nil {
		fmt.Fprintf(w, "last dispatch: %d ms\n", *st.LastDispatch)
	}
}

func sessionVerbCmd(flags *globalFlags, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st session.Status
			if err := resolveClient(flags).do(cmd.Context(), http.MethodPost, path, &st); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newStartCmd(flags *globalFlags) *cobra.Command {
	return sessionVerbCmd(flags, "start", "Start listening for voice commands", "/v1/session/start")
}

func newStopCmd(flags *globalFlags) *cobra.Command {
	return sessionVerbCmd(flags, "stop", "Stop listening for voice commands", "/v1/session/stop")
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session state and command table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st session.Status
			if err := resolveClient(flags).do(cmd.Context(), http.MethodGet, "/v1/session", &st); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printStatus(w, st)
			fmt.Fprintln(w, "commands:")
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			for _, c := range st.Commands {
				fmt.Fprintf(tw, "  %s\t%s\n", c.Name, c.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output status as JSON")
	return cmd
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently dispatched commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/v1/history"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			var resp api.HistoryResponse
			if err := resolveClient(flags).do(cmd.Context(), http.MethodGet, path, &resp); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tCOMMAND\tTEXT\tPAYLOAD")
			for _, e := range resp.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.DispatchedAt.Local().Format(time.DateTime), e.Command, e.Text, e.Payload)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the daemon live in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := resolveClient(flags)
			if c.apiKey == "" {
				return fmt.Errorf("API key required: use --api-key or %s", EnvAPIKey)
			}
			p := tea.NewProgram(watch.New(c.baseURL, c.apiKey))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}
}
