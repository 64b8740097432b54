// Package notify delivers role-targeted notifications to the Spring Boot
// application. Delivery is strictly best-effort: every failure is logged
// and swallowed so content operations never depend on the sink.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"newsdesk/internal/auth"
)

// Client posts notifications to the configured sink URL with bearer auth.
type Client struct {
	url        string
	authToken  string
	authHeader string
	httpClient *http.Client
}

// NewClient reads NOTIFICATION_URL, NOTIFICATION_AUTH_TOKEN,
// NOTIFICATION_AUTH_HEADER (default Authorization) and
// NOTIFICATION_TIMEOUT_SECONDS (default 5).
func NewClient() *Client {
	timeout := 5
	if raw := os.Getenv("NOTIFICATION_TIMEOUT_SECONDS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			timeout = n
		}
	}
	header := os.Getenv("NOTIFICATION_AUTH_HEADER")
	if header == "" {
		header = "Authorization"
	}
	return &Client{
		url:        os.Getenv("NOTIFICATION_URL"),
		authToken:  os.Getenv("NOTIFICATION_AUTH_TOKEN"),
		authHeader: header,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

type payload struct {
	PostID       uint   `json:"postId"`
	ReceiverRole string `json:"receiverRole"`
	Message      string `json:"message"`
}

// Send posts one notification. requestToken, when non-empty, overrides the
// configured token for this call. Send never returns an error.
func (c *Client) Send(articleID uint, receiver auth.Role, message, requestToken string) {
	if c.url == "" {
		log.Println("notification URL not configured, skipping notification")
		return
	}
	token := requestToken
	if token == "" {
		token = c.authToken
	}
	if token == "" {
		log.Printf("no notification token available for article %d, skipping", articleID)
		return
	}

	body, err := json.Marshal(payload{
		PostID:       articleID,
		ReceiverRole: receiver.String(),
		Message:      message,
	})
	if err != nil {
		log.Printf("failed to encode notification for article %d: %v", articleID, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		log.Printf("failed to build notification request for article %d: %v", articleID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if !strings.HasPrefix(token, "Bearer ") {
		token = "Bearer " + token
	}
	req.Header.Set(c.authHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("notification delivery failed for article %d: %v", articleID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("notification sink returned %d for article %d", resp.StatusCode, articleID)
		return
	}
	log.Printf("notification sent for article %d to role %s", articleID, receiver)
}

// Workflow convenience wrappers. Each targets the next role up from the
// actor.

func (c *Client) OnCreate(articleID uint, title string, actor *auth.Identity) {
	c.Send(articleID, auth.NextReceiver(actor.Role),
		fmt.Sprintf("New article created: %s", title), actor.Token)
}

func (c *Client) OnReview(articleID uint, title string, actor *auth.Identity) {
	c.Send(articleID, auth.NextReceiver(actor.Role),
		fmt.Sprintf("Article awaiting review: %s", title), actor.Token)
}

func (c *Client) OnPublish(articleID uint, title string, actor *auth.Identity) {
	c.Send(articleID, auth.NextReceiver(actor.Role),
		fmt.Sprintf("Article published: %s", title), actor.Token)
}

func (c *Client) OnReject(articleID uint, title, reason string, actor *auth.Identity) {
	msg := fmt.Sprintf("Article rejected: %s", title)
	if reason != "" {
		msg = fmt.Sprintf("Article rejected: %s (reason: %s)", title, reason)
	}
	c.Send(articleID, auth.NextReceiver(actor.Role), msg, actor.Token)
}

func (c *Client) OnUpdate(articleID uint, title string, actor *auth.Identity) {
	c.Send(articleID, auth.NextReceiver(actor.Role),
		fmt.Sprintf("Article updated: %s", title), actor.Token)
}

func (c *Client) OnDeactivate(articleID uint, title string, actor *auth.Identity) {
	c.Send(articleID, auth.NextReceiver(actor.Role),
		fmt.Sprintf("Article deactivated: %s", title), actor.Token)
}

func (c *Client) OnActivate(articleID uint, title string, actor *auth.Identity) {
	c.Send(articleID, auth.NextReceiver(actor.Role),
		fmt.Sprintf("Article reactivated: %s", title), actor.Token)
}

func (c *Client) OnDelete(articleID uint, title string, actor *auth.Identity) {
	c.Send(articleID, auth.NextReceiver(actor.Role),
		fmt.Sprintf("Article deleted: %s", title), actor.Token)
}
