package main

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/streamsaviour-go/internal/app"
	"github.com/yourusername/streamsaviour-go/internal/domain"
	"github.com/yourusername/streamsaviour-go/pkg/logger"
)

var searchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "Show search history",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		query, _ := cmd.Flags().GetString("query")

		var searches []domain.SearchHistoryEntry
		mustAPI(http.MethodGet, "/api/v1/history/searches?q="+url.QueryEscape(query), nil, &searches)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tTITLE\tURL")
		for _, s := range searches {
			title := ""
			if s.Metadata != nil {
				title = s.Metadata.Title
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				shortID(s.ID),
				s.CreatedAt.Local().Format("2006-01-02 15:04"),
				truncate(title, 30),
				truncate(s.URL, 50))
		}
		w.Flush()
	},
}

var searchesRemoveCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Remove a search history entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		mustAPI(http.MethodDelete, "/api/v1/history/searches/"+url.PathEscape(args[0]), nil, nil)
		fmt.Println("Search removed")
	},
}

var searchesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear search history",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		mustAPI(http.MethodDelete, "/api/v1/history/searches", nil, nil)
		fmt.Println("Search history cleared")
	},
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List completed downloads",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var items []domain.DownloadHistoryItem
		mustAPI(http.MethodGet, "/api/v1/library", nil, &items)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDOWNLOADED\tSIZE\tFORMAT\tFILE")
		for _, item := range items {
			fmt.Fprintln(w, libraryRow(item))
		}
		w.Flush()
	},
}

var librarySaveCmd = &cobra.Command{
	Use:   "save [id]",
	Short: "Save a completed download to a local file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		output, _ := cmd.Flags().GetString("output")

		resp, err := httpClient.Get(serverURL + "/api/v1/library/" + url.PathEscape(args[0]) + "/content")
		if err != nil {
			fail(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			fail(fmt.Errorf("%s", errorText(body, resp.StatusCode)))
		}

		if output == "" {
			output = fileNameFromDisposition(resp.Header.Get("Content-Disposition"), args[0])
		}
		file, err := os.Create(output)
		if err != nil {
			fail(err)
		}
		n, err := io.Copy(file, resp.Body)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			fail(err)
		}
		fmt.Printf("Saved %s (%s)\n", output, formatBytes(n))
	},
}

var libraryExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export a completed download to the configured target",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var result app.ExportResult
		mustAPI(http.MethodPost, "/api/v1/library/"+url.PathEscape(args[0])+"/export", nil, &result)
		fmt.Printf("Exported %s to %s: %s\n", result.FileName, result.Target, result.Location)
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Remove a completed download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		mustAPI(http.MethodDelete, "/api/v1/library/"+url.PathEscape(args[0]), nil, nil)
		fmt.Println("Download removed")
	},
}

var libraryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every completed download",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		mustAPI(http.MethodDelete, "/api/v1/library", nil, nil)
		fmt.Println("Library cleared")
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [session|error]",
	Short: "View session event and error logs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		limit, _ := cmd.Flags().GetInt("limit")
		query, _ := cmd.Flags().GetString("query")
		date, _ := cmd.Flags().GetString("date")

		params := url.Values{}
		params.Set("limit", fmt.Sprint(limit))
		if query != "" {
			params.Set("q", query)
		}
		if date != "" {
			params.Set("date", date)
		}

		var result struct {
			Entries []logger.LogEntry `json:"entries"`
		}
		mustAPI(http.MethodGet, "/api/v1/logs/"+url.PathEscape(args[0])+"?"+params.Encode(), nil, &result)

		for _, e := range result.Entries {
			fmt.Printf("%s  %-5s  %s", e.Timestamp, e.Level, e.Message)
			if id, ok := e.Fields["id"]; ok {
				fmt.Printf("  id=%v", id)
			}
			if msg, ok := e.Fields["error"]; ok {
				fmt.Printf("  error=%v", msg)
			}
			fmt.Println()
		}
	},
}

// fileNameFromDisposition picks the attachment file name, falling back to id
func fileNameFromDisposition(header, id string) string {
	_, params, err := mime.ParseMediaType(header)
	if err == nil && params["filename"] != "" {
		return filepath.Base(params["filename"])
	}
	return id
}

func init() {
	searchesCmd.Flags().StringP("query", "q", "", "Filter by URL or title")
	searchesCmd.AddCommand(searchesRemoveCmd)
	searchesCmd.AddCommand(searchesClearCmd)

	librarySaveCmd.Flags().StringP("output", "o", "", "Output file (defaults to the download's file name)")
	libraryCmd.AddCommand(librarySaveCmd)
	libraryCmd.AddCommand(libraryExportCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	libraryCmd.AddCommand(libraryClearCmd)

	logsCmd.Flags().IntP("limit", "n", 50, "Number of newest entries")
	logsCmd.Flags().StringP("query", "q", "", "Only entries containing this text")
	logsCmd.Flags().String("date", "", "Day to read (YYYY-MM-DD, default today)")
}

// libraryRow renders one tab-separated row of the library table
func libraryRow(item domain.DownloadHistoryItem) string {
	quality := item.Format.QualityLabel()
	if quality == "" {
		quality = item.Format.FormatID
	}
	return strings.Join([]string{
		shortID(item.ID),
		item.DownloadedAt.Local().Format("2006-01-02 15:04"),
		formatBytes(item.Size),
		quality,
		item.FileName,
	}, "\t")
}
