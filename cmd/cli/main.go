package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/streamsaviour-go/api/handlers"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "streamsaviour",
		Short: "StreamSaviour CLI - download videos and audio with yt-dlp",
		Long:  `A command-line interface for analyzing URLs and managing downloads on a StreamSaviour server.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8090", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(searchesCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(logsCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url]",
	Short: "List the formats available for a URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		filter, _ := cmd.Flags().GetString("filter")

		var result handlers.AnalyzeResponse
		mustAPI(http.MethodPost, "/api/v1/analyze?filter="+url.QueryEscape(filter),
			map[string]string{"url": args[0]}, &result)

		meta := result.Metadata
		fmt.Printf("Title:    %s\n", meta.Title)
		if meta.Uploader != "" {
			fmt.Printf("Uploader: %s\n", meta.Uploader)
		}
		if meta.Duration > 0 {
			fmt.Printf("Duration: %.0fs\n", meta.Duration)
		}
		fmt.Println()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GROUP\tFORMAT\tEXT\tQUALITY\tSIZE")
		printFormats(w, "HD", result.Buckets.HD)
		printFormats(w, "SD", result.Buckets.SD)
		printFormats(w, "Audio", result.Buckets.Audio)
		w.Flush()
	},
}

func printFormats(w *tabwriter.Writer, group string, formats []domain.MediaFormat) {
	for _, f := range formats {
		size := "-"
		if s := f.Size(); s != nil {
			size = formatBytes(*s)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", group, f.FormatID, f.Ext, f.QualityLabel, size)
	}
}

var startCmd = &cobra.Command{
	Use:   "start [url]",
	Short: "Start downloading a format of a URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		formatID, _ := cmd.Flags().GetString("format")

		var session domain.DownloadSession
		mustAPI(http.MethodPost, "/api/v1/sessions", map[string]string{
			"url":       args[0],
			"format_id": formatID,
		}, &session)

		fmt.Printf("Download started!\n")
		fmt.Printf("ID:     %s\n", session.ID)
		fmt.Printf("Title:  %s\n", session.Title)
		fmt.Printf("Status: %s\n", session.Status)
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List active and failed download sessions",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var sessions []domain.DownloadSession
		mustAPI(http.MethodGet, "/api/v1/sessions", nil, &sessions)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tRECEIVED\tTITLE")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s %3.0f%%\t%s\t%s\n",
				shortID(s.ID),
				s.Status,
				progressBar(s.Progress, 10), s.Progress,
				formatBytes(s.DownloadedBytes),
				truncate(s.Title, 40))
		}
		w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get session details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var s domain.DownloadSession
		mustAPI(http.MethodGet, "/api/v1/sessions/"+url.PathEscape(args[0]), nil, &s)

		fmt.Printf("Session Details:\n")
		fmt.Printf("  ID:       %s\n", s.ID)
		fmt.Printf("  URL:      %s\n", s.URL)
		fmt.Printf("  Title:    %s\n", s.Title)
		fmt.Printf("  Status:   %s\n", s.Status)
		fmt.Printf("  Format:   %s (%s)\n", s.Format.FormatID, s.Format.Ext)
		fmt.Printf("  Progress: %s %.0f%%\n", progressBar(s.Progress, 20), s.Progress)
		fmt.Printf("  Received: %s\n", formatBytes(s.DownloadedBytes))
		if s.TotalBytes != nil {
			fmt.Printf("  Total:    %s\n", formatBytes(*s.TotalBytes))
		}
		if s.FileName != "" {
			fmt.Printf("  File:     %s\n", s.FileName)
		}
		if s.ErrorMessage != "" {
			fmt.Printf("  Error:    %s\n", s.ErrorMessage)
		}
	},
}

// sessionAction builds a command posting to /api/v1/sessions/:id/<action>
func sessionAction(action, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ensureServer()
			mustAPI(http.MethodPost, "/api/v1/sessions/"+url.PathEscape(args[0])+"/"+action, nil, nil)
			fmt.Println(done)
		},
	}
}

var (
	pauseCmd  = sessionAction("pause", "Pause a download", "Download paused")
	resumeCmd = sessionAction("resume", "Resume a paused download from the start", "Download resumed")
	cancelCmd = sessionAction("cancel", "Cancel a download", "Download cancelled successfully")
)

var removeCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a session, stopping it if running",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		mustAPI(http.MethodDelete, "/api/v1/sessions/"+url.PathEscape(args[0]), nil, nil)
		fmt.Println("Session removed")
	},
}

func init() {
	analyzeCmd.Flags().StringP("filter", "f", "all", "Format filter (all, video, audio)")
	startCmd.Flags().StringP("format", "f", "", "Format ID from analyze")
	startCmd.MarkFlagRequired("format")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
