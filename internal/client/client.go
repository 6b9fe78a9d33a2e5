package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"teamsync/internal/config"
	"teamsync/internal/types"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMessageCap = 500
	defaultUserID     = "user"
	totalCountHeader  = "X-Total-Count"
)

var ErrMissingToken = errors.New("api token not found; set TEAMSYNC_TOKEN or [api].token")

// Client talks to the team orchestration service over HTTP+JSON.
type Client struct {
	baseURL   string
	tokenPath string
	token     string
	userID    string
	http      *http.Client
}

// New builds a client from the effective configuration. A missing token is
// not an error here; requests fail with ErrMissingToken instead.
func New(cfg config.CoreConfig) (*Client, error) {
	token, err := cfg.ResolveToken()
	if err != nil {
		return nil, err
	}
	tokenPath, err := cfg.ResolveTokenPath()
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.APIBaseURL(), "/"),
		tokenPath: tokenPath,
		token:     token,
		userID:    defaultUserID,
		http: &http.Client{
			Timeout: cfg.APITimeout(),
		},
	}, nil
}

func NewWithBaseURL(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		userID:  defaultUserID,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) CreateSession(ctx context.Context, teamID, message string) (string, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return "", errors.New("team id is required")
	}
	var resp RunResponse
	path := "/team-run-no-wait/" + url.PathEscape(teamID)
	if _, err := c.doJSON(ctx, http.MethodPost, path, MessageRequest{Message: message}, &resp); err != nil {
		return "", err
	}
	if resp.TeamSession == nil || strings.TrimSpace(resp.TeamSession.ID) == "" {
		return "", errors.New("run response is missing the session id")
	}
	return resp.TeamSession.ID, nil
}

func (c *Client) ContinueSession(ctx context.Context, teamID, sessionID, message string) error {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return errors.New("team id is required")
	}
	path := "/team-continue-no-wait/" + url.PathEscape(teamID) + "/" + url.PathEscape(sessionID)
	_, err := c.doJSON(ctx, http.MethodPost, path, MessageRequest{Message: message}, nil)
	return err
}

func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/teams/sessions/"+url.PathEscape(sessionID)+"/stop", nil, nil)
	return err
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	var resp RunResponse
	if _, err := c.doJSON(ctx, http.MethodGet, "/team-run-results/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.TeamSession == nil {
		return nil, errors.New("run results are missing the team session")
	}
	return resp.TeamSession, nil
}

func (c *Client) GetMessages(ctx context.Context, sessionID string) ([]types.MessageRecord, error) {
	page, err := c.GetMessagesPage(ctx, sessionID, 0, defaultMessageCap)
	if err != nil {
		return nil, err
	}
	return page.Messages, nil
}

// GetMessagesPage fetches one page of the message log together with the
// total count the service reports.
func (c *Client) GetMessagesPage(ctx context.Context, sessionID string, skip, limit int) (*MessagesPage, error) {
	query := pageQuery(skip, limit)
	query.Set("userId", c.userID)
	path := "/sessions/" + url.PathEscape(sessionID) + "/messages?" + query.Encode()
	return c.getMessagesPage(ctx, path)
}

func (c *Client) GetDebugMessages(ctx context.Context, sessionID string, skip, limit int) (*MessagesPage, error) {
	path := "/sessions/" + url.PathEscape(sessionID) + "/messages/debug?" + pageQuery(skip, limit).Encode()
	return c.getMessagesPage(ctx, path)
}

func (c *Client) GetInquiries(ctx context.Context, sessionID string) ([]types.Inquiry, error) {
	var inquiries []types.Inquiry
	if _, err := c.doJSON(ctx, http.MethodGet, "/inquiries/session/"+url.PathEscape(sessionID), nil, &inquiries); err != nil {
		return nil, err
	}
	return inquiries, nil
}

func (c *Client) RespondToInquiry(ctx context.Context, inquiryID, message string) error {
	path := "/inquiries/" + url.PathEscape(inquiryID) + "/response"
	_, err := c.doJSON(ctx, http.MethodPut, path, InquiryResponseRequest{Response: message}, nil)
	return err
}

func (c *Client) getMessagesPage(ctx context.Context, path string) (*MessagesPage, error) {
	var messages []types.MessageRecord
	header, err := c.doJSON(ctx, http.MethodGet, path, nil, &messages)
	if err != nil {
		return nil, err
	}
	page := &MessagesPage{Messages: messages, TotalCount: len(messages)}
	if raw := strings.TrimSpace(header.Get(totalCountHeader)); raw != "" {
		if total, err := strconv.Atoi(raw); err == nil {
			page.TotalCount = total
		}
	}
	return page, nil
}

func pageQuery(skip, limit int) url.Values {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultMessageCap
	}
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))
	return query
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	if err := c.ensureToken(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	httpClient := c.http
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Header, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.Header, nil
}

func (c *Client) ensureToken() error {
	if strings.TrimSpace(c.token) == "" {
		if err := c.loadToken(); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.token) == "" {
		return ErrMissingToken
	}
	return nil
}

func (c *Client) loadToken() error {
	if c.tokenPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.token = ""
			return nil
		}
		return err
	}
	c.token = strings.TrimSpace(string(data))
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if message := payload.text(); message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
