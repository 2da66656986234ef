package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var httpClient = &http.Client{Timeout: 2 * time.Minute}

// apiError is the error body every endpoint returns
type apiError struct {
	Error string `json:"error"`
}

// apiDo sends a request to the server and returns the response body
func apiDo(method, path string, body interface{}) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// errorText extracts the error message of a failed response
func errorText(body []byte, status int) string {
	var e apiError
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if len(body) > 0 {
		return string(body)
	}
	return http.StatusText(status)
}

// mustAPI calls the server, exits on failure and decodes the response into
// out when out is non-nil
func mustAPI(method, path string, body interface{}, out interface{}) {
	data, status, err := apiDo(method, path, body)
	if err != nil {
		fail(err)
	}
	if status < 200 || status >= 300 {
		fail(fmt.Errorf("%s", errorText(data, status)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			fail(fmt.Errorf("unexpected response: %w", err))
		}
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
