package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"adaptd/pkg/types"
)

// client is a thin HTTP client for the adaptd API.
type client struct {
	base string
	http *http.Client
}

func (c *client) get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *client) post(path string, req any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return nil, err
	}
	resp, err := c.http.Post(c.base+path, "application/json", &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

func apiError(code int, body []byte) error {
	var e types.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("server returned %d: %s", code, e.Error)
	}
	return fmt.Errorf("server returned %d", code)
}

// printJSON re-indents a response body for the terminal.
func printJSON(body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return err
	}
	fmt.Println(buf.String())
	return nil
}

func buildRootCmd() *cobra.Command {
	c := &client{http: &http.Client{Timeout: 60 * time.Second}}

	root := &cobra.Command{
		Use:           "adaptctl",
		Short:         "Command line client for the adaptd analysis daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addr := root.PersistentFlags().String("addr", envOr("ADAPTD_ADDR", "http://127.0.0.1:8080"), "Base URL of the adaptd server")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		c.base = strings.TrimRight(*addr, "/")
		if !strings.HasPrefix(c.base, "http") {
			c.base = "http://" + c.base
		}
	}

	statusCmd := &cobra.Command{Use: "status", Short: "Show tier, memory and loaded models", RunE: func(cmd *cobra.Command, args []string) error {
		body, err := c.get("/status")
		if err != nil {
			return err
		}
		return printJSON(body)
	}}

	featuresCmd := &cobra.Command{Use: "features", Short: "List analysis types available at the current tier", RunE: func(cmd *cobra.Command, args []string) error {
		body, err := c.get("/features")
		if err != nil {
			return err
		}
		return printJSON(body)
	}}

	optimizeCmd := &cobra.Command{Use: "optimize", Short: "Show optimization recommendations", RunE: func(cmd *cobra.Command, args []string) error {
		body, err := c.get("/optimizations")
		if err != nil {
			return err
		}
		return printJSON(body)
	}}

	var analysisType string
	analyzeCmd := &cobra.Command{Use: "analyze <text>", Short: "Analyze one text", Example: "  adaptctl analyze --type sentiment \"loved every minute of it\"", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		body, err := c.post("/analyze", types.AnalyzeRequest{Text: args[0], Type: analysisType})
		if err != nil {
			return err
		}
		return printJSON(body)
	}}
	analyzeCmd.Flags().StringVar(&analysisType, "type", "sentiment", "Analysis type (see `adaptctl features`)")

	var batchType string
	batchCmd := &cobra.Command{Use: "batch <text>...", Short: "Analyze several texts in one request", Args: cobra.MinimumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		body, err := c.post("/analyze/batch", types.BatchRequest{Texts: args, Type: batchType})
		if err != nil {
			return err
		}
		return printJSON(body)
	}}
	batchCmd.Flags().StringVar(&batchType, "type", "sentiment", "Analysis type for every text in the batch")

	healthCmd := &cobra.Command{Use: "health", Short: "Check whether the server is ready", RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := c.get("/healthz"); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	}}

	root.AddCommand(statusCmd, featuresCmd, optimizeCmd, analyzeCmd, batchCmd, healthCmd)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "adaptctl:", err)
		os.Exit(1)
	}
}
