package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type logListing struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Exists      bool   `json:"exists"`
	Default     bool   `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

func (c *cli) newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List the catalog and whether each log is present",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.bind(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := c.catalog(cfg)
			if err != nil {
				return err
			}

			statuses := catalog.LogStatuses()
			listing := make([]logListing, 0, len(statuses))
			for _, l := range catalog.Logs() {
				st := statuses[l.Name]
				listing = append(listing, logListing{
					Name:        l.Name,
					Path:        st.Path,
					Exists:      st.Exists,
					Default:     l.Name == catalog.DefaultLog(),
					Description: l.Description,
				})
			}

			out := cmd.OutOrStdout()
			if c.v.GetBool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"dbc_file":   catalog.SignalDBPath(),
					"dbc_exists": catalog.Exists(catalog.SignalDBPath()),
					"logs":       listing,
				})
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPRESENT\tPATH")
			for _, l := range listing {
				name := l.Name
				if l.Default {
					name += " *"
				}
				fmt.Fprintf(w, "%s\t%t\t%s\n", name, l.Exists, l.Path)
			}
			fmt.Fprintf(w, "dbc\t%t\t%s\n", catalog.Exists(catalog.SignalDBPath()), catalog.SignalDBPath())
			return w.Flush()
		},
	}

	cmd.Flags().Bool("json", false, "print the listing as JSON")
	return cmd
}
