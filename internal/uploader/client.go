// Package uploader is the client side of the receipt upload flow: a typed
// client for the expense API and the form state machine that drives
// sign, upload and attach.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"github.com/expensely/service/internal/expense"
	"github.com/expensely/service/internal/upload"
)

// APIError is a non-2xx answer from the API or the object store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// Client talks to the expense API. Cookies set by the API are kept and sent
// back on later API calls; uploads to presigned URLs never carry them.
type Client struct {
	baseURL string
	http    *http.Client
	put     *http.Client
}

// NewClient creates a Client for the API rooted at baseURL
// (for example http://localhost:8080/api).
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
		put:     &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

type expenseData struct {
	Expense *expense.Expense `json:"expense"`
}

// List returns every expense.
func (c *Client) List(ctx context.Context) ([]expense.Expense, error) {
	var data struct {
		Expenses []expense.Expense `json:"expenses"`
	}
	if err := c.do(ctx, http.MethodGet, "/expenses", nil, &data); err != nil {
		return nil, err
	}
	return data.Expenses, nil
}

// Get returns one expense.
func (c *Client) Get(ctx context.Context, id int64) (*expense.Expense, error) {
	var data expenseData
	if err := c.do(ctx, http.MethodGet, expensePath(id), nil, &data); err != nil {
		return nil, err
	}
	return data.Expense, nil
}

// Create records a new expense.
func (c *Client) Create(ctx context.Context, title string, amount int64) (*expense.Expense, error) {
	var data expenseData
	in := expense.CreateInput{Title: title, Amount: amount}
	if err := c.do(ctx, http.MethodPost, "/expenses", in, &data); err != nil {
		return nil, err
	}
	return data.Expense, nil
}

// SignUpload asks the API for a presigned PUT URL for a file.
func (c *Client) SignUpload(ctx context.Context, filename, contentType string) (*upload.Ticket, error) {
	var t upload.Ticket
	in := upload.SignInput{Filename: filename, ContentType: contentType}
	if err := c.do(ctx, http.MethodPost, "/upload/sign", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// AttachKey stores an uploaded object key as the expense's receipt.
func (c *Client) AttachKey(ctx context.Context, id int64, key string) (*expense.Expense, error) {
	var data expenseData
	body := map[string]string{"fileKey": key}
	if err := c.do(ctx, http.MethodPatch, expensePath(id), body, &data); err != nil {
		return nil, err
	}
	return data.Expense, nil
}

// PutObject uploads body to a presigned URL. contentType must match the type
// the URL was signed for.
func (c *Client) PutObject(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return err
	}
	if size >= 0 {
		req.ContentLength = size
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.put.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return &APIError{Status: resp.StatusCode, Message: env.Error.Message}
	}

	env := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func expensePath(id int64) string {
	return "/expenses/" + strconv.FormatInt(id, 10)
}
