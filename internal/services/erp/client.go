package erp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"
)

// ErrAuthFailed is returned when the ERP rejects the credentials.
var ErrAuthFailed = errors.New("erp authentication failed")

// Client represents an ERP XML-RPC client
type Client struct {
	URL       string
	Database  string
	Username  string
	Password  string
	Uid       int64
	CommonURL string
	ObjectURL string
	Transport http.RoundTripper
}

// NewClient creates a new ERP client
func NewClient(url, db, username, password string) *Client {
	url = strings.TrimRight(url, "/")
	return &Client{
		URL:       url,
		Database:  db,
		Username:  username,
		Password:  password,
		CommonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		ObjectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
		Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
	}
}

// Authenticate authenticates with the ERP and returns the user ID
func (c *Client) Authenticate() (int64, error) {
	client, err := xmlrpc.NewClient(c.CommonURL, c.Transport)
	if err != nil {
		return 0, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password, map[string]interface{}{}}
	// A rejected login answers false instead of a fault.
	var result interface{}
	if err := client.Call("authenticate", args, &result); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}

	uid, ok := result.(int64)
	if !ok || uid == 0 {
		return 0, ErrAuthFailed
	}
	c.Uid = uid
	return uid, nil
}

// SearchReadRaw performs a search_read and returns the records as maps.
func (c *Client) SearchReadRaw(model string, domain []interface{}, fields []string, limit, offset int) ([]map[string]interface{}, error) {
	if c.Uid == 0 {
		if _, err := c.Authenticate(); err != nil {
			return nil, err
		}
	}

	client, err := xmlrpc.NewClient(c.ObjectURL, c.Transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"search_read",
		[]interface{}{domain},
		map[string]interface{}{
			"fields": fields,
			"limit":  limit,
			"offset": offset,
			"order":  "id",
		},
	}

	var rawResult []map[string]interface{}
	if err := client.Call("execute_kw", args, &rawResult); err != nil {
		return nil, fmt.Errorf("failed to execute search_read on %s: %w", model, err)
	}
	return rawResult, nil
}

// SearchRead performs a search_read and decodes the records into result,
// a pointer to a slice of structs with json tags.
func (c *Client) SearchRead(model string, domain []interface{}, fields []string, limit, offset int, result interface{}) error {
	rawResult, err := c.SearchReadRaw(model, domain, fields, limit, offset)
	if err != nil {
		return err
	}
	return decode(rawResult, result)
}

// decode converts XML-RPC maps into typed records through JSON, which lets
// ErpString and Many2One absorb the ERP's false-for-empty values.
func decode(raw interface{}, result interface{}) error {
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}
	if err := json.Unmarshal(jsonData, result); err != nil {
		return fmt.Errorf("failed to unmarshal into target: %w", err)
	}
	return nil
}
