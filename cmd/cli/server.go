package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinaryName   = "streamsaviour-server"
	serverBinaryEnv    = "STREAMSAVIOUR_SERVER_BIN"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// serverHealthy reports whether a StreamSaviour server answers /health
func serverHealthy() bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	var health struct {
		Status string `json:"status"`
	}
	return json.NewDecoder(resp.Body).Decode(&health) == nil && health.Status == "ok"
}

// serverBinaryCandidates lists where the server binary may live, in order
func serverBinaryCandidates() []string {
	var candidates []string
	if p := os.Getenv(serverBinaryEnv); p != "" {
		candidates = append(candidates, p)
	}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), serverBinaryName))
	}
	if p, err := exec.LookPath(serverBinaryName); err == nil {
		candidates = append(candidates, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "go", "bin", serverBinaryName),
			filepath.Join(home, ".local", "bin", serverBinaryName))
	}
	return append(candidates,
		"/usr/local/bin/"+serverBinaryName,
		"/usr/bin/"+serverBinaryName)
}

// findServerBinary returns the first existing server binary
func findServerBinary() (string, error) {
	for _, p := range serverBinaryCandidates() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s binary not found (set %s to its path)", serverBinaryName, serverBinaryEnv)
}

// spawnServer starts the server detached from this terminal
func spawnServer() error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	// -foreground skips the server's own daemon fork
	cmd := exec.Command(serverPath, "-foreground")
	cmd.Env = os.Environ()
	detachProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", serverPath, err)
	}
	return cmd.Process.Release()
}

// waitForServer polls /health until the server answers or the timeout ends
func waitForServer(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if serverHealthy() {
			return nil
		}
		time.Sleep(serverPollInterval)
	}
	return fmt.Errorf("server did not start within %v", timeout)
}

// ensureServerRunning starts the server unless one already answers
func ensureServerRunning() error {
	if serverHealthy() {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Server not running, starting...")
	if err := spawnServer(); err != nil {
		return err
	}
	if err := waitForServer(serverStartTimeout); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Server started")
	return nil
}
