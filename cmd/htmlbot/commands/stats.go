package commands

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tbourn/html-downloader-bot/internal/utils"
)

// keyPreviewRunes matches the preview length shown in the chat key list.
const keyPreviewRunes = 20

func init() {
	statsCmd.Flags().BoolVar(&showKeys, "keys", true, "also list the stored API keys (truncated)")
	rootCmd.AddCommand(statsCmd)
}

var showKeys bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the dashboard counters from the configured store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		st := store.StatsSnapshot()
		admin := "none"
		if id, ok := store.Admin(); ok {
			admin = strconv.FormatInt(id, 10)
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Metric", "Value"})
		t.AppendRows([]table.Row{
			{"Admin", admin},
			{"API keys", st.APIKeyCount},
			{"Total requests", st.TotalRequests},
			{"Today's requests", st.TodayRequests},
			{"Users", st.UserCount},
			{"Logged requests", store.RequestLogLen()},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()

		if !showKeys || st.APIKeyCount == 0 {
			return nil
		}
		k := table.NewWriter()
		k.SetOutputMirror(cmd.OutOrStdout())
		k.AppendHeader(table.Row{"ID", "Key", "Added"})
		for _, key := range store.APIKeys() {
			k.AppendRow(table.Row{key.ID, utils.TruncateRunes(key.Key, keyPreviewRunes) + "...", key.AddedAt.String()})
		}
		k.SetStyle(table.StyleRounded)
		k.Render()
		return nil
	},
}

