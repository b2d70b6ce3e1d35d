package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	v1 "github.com/ardanlabs/ledger/business/web/v1"
)

// client is used for every call to the node. Mining can take a while.
var client = http.Client{
	Timeout: 5 * time.Minute,
}

// call performs the request against the node and returns the response body.
// A non 2xx response is returned as an error carrying the node's message.
func call(method string, path string, body any) ([]byte, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, nodeURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var er v1.ErrorResponse
		if err := json.Unmarshal(content, &er); err != nil || er.Error == "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(content))
		}
		if len(er.Fields) > 0 {
			return nil, fmt.Errorf("status %d: %s: %v", resp.StatusCode, er.Error, er.Fields)
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, er.Error)
	}

	return content, nil
}

// render writes the json document indented.
func render(w io.Writer, content []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, content, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')

	_, err := w.Write(out.Bytes())
	return err
}
