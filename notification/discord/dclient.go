// File: notification/discord/dclient.go
package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Quaser41/Autonomous-Trader/pkg/broker"
	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// Client sends notifications to a Discord webhook.
type Client struct {
	webhookURL string
	HTTPClient *http.Client
	logger     *utilities.Logger
}

// DiscordMessage represents the structure for a Discord webhook message.
// See: https://discord.com/developers/docs/resources/webhook#execute-webhook
type DiscordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents an embed object in a Discord message.
type DiscordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"` // ISO8601 timestamp
	Color       int    `json:"color,omitempty"`     // Decimal color code
}

func NewClient(webhookURL string, logger *utilities.Logger) *Client {
	if webhookURL == "" {
		logger.LogWarn("Discord Client: Webhook URL is empty. Notifications will not be sent.")
	} else {
		logger.LogInfo("Discord Client initialized with webhook URL.")
	}

	return &Client{
		webhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SendMessage sends a simple text message to the configured Discord webhook.
func (c *Client) SendMessage(message string) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord SendMessage: Webhook URL is not set, skipping.")
		return nil
	}

	if strings.TrimSpace(message) == "" {
		c.logger.LogDebug("Discord SendMessage: Message is empty, skipping.")
		return nil
	}

	payload := DiscordMessage{
		Content: message,
	}
	return c.sendPayload(payload)
}

// SendEmbedMessage sends a message with one or more embeds.
func (c *Client) SendEmbedMessage(embeds ...DiscordEmbed) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord SendEmbedMessage: Webhook URL is not set, skipping.")
		return nil
	}
	if len(embeds) == 0 {
		c.logger.LogDebug("Discord SendEmbedMessage: No embeds provided, skipping.")
		return nil
	}
	payload := DiscordMessage{
		Embeds: embeds,
	}
	return c.sendPayload(payload)
}

// sendPayload is an internal helper to send the marshalled JSON payload.
func (c *Client) sendPayload(payload DiscordMessage) error {
	if c.webhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		c.logger.LogError("Discord sendPayload: Failed to marshal JSON: %v", err)
		return fmt.Errorf("failed to marshal discord message: %w", err)
	}

	req, err := http.NewRequest("POST", c.webhookURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		c.logger.LogError("Discord sendPayload: Failed to create HTTP request: %v", err)
		return fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "AutonomousTraderBot/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.LogError("Discord sendPayload: Failed to send HTTP request: %v", err)
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.LogDebug("Discord sendPayload: Message sent successfully (Status: %s)", resp.Status)
		return nil
	}

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		c.logger.LogError("Discord sendPayload: Received non-OK status: %s. Failed to read body: %v", resp.Status, readErr)
		return fmt.Errorf("discord API error: %s, failed to read response body", resp.Status)
	}
	c.logger.LogError("Discord sendPayload: Received non-OK status: %s. Body: %s", resp.Status, string(bodyBytes))
	return fmt.Errorf("discord API error: %s, response: %s", resp.Status, string(bodyBytes))
}

// NotifyFill sends a formatted notification for an executed fill.
func (c *Client) NotifyFill(fill broker.Fill, additionalDetails string) error {
	if c.webhookURL == "" {
		c.logger.LogDebug("Discord NotifyFill: Webhook URL is not set, skipping.")
		return nil
	}

	var title string
	var color int

	switch fill.Side {
	case broker.SideBuy:
		title = fmt.Sprintf("✅ BUY Filled: %s", fill.Symbol)
		color = 3066993 // Green
	case broker.SideSell:
		title = fmt.Sprintf("💰 SELL Filled: %s", fill.Symbol)
		color = 15158332 // Red
	default:
		title = fmt.Sprintf("ℹ️ Fill Update: %s (%s)", fill.Symbol, strings.ToUpper(fill.Side))
		color = 3447003 // Blue
	}

	fieldDetails := fmt.Sprintf(
		"**Symbol**: %s\n"+
			"**Fill Price**: `%.4f`\n"+
			"**Quantity**: `%.8f`\n"+
			"**Notional**: `%.2f`\n"+
			"**Fill ID**: `%s`",
		fill.Symbol,
		fill.Price,
		fill.Quantity,
		fill.Price*fill.Quantity,
		fill.ID,
	)
	if fill.Reason != "" {
		fieldDetails += fmt.Sprintf("\n**Reason**: %s", fill.Reason)
	}

	fullDescription := fieldDetails
	if additionalDetails != "" {
		fullDescription = fmt.Sprintf("%s\n\n%s", additionalDetails, fieldDetails)
	}

	timestamp := fill.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	embed := DiscordEmbed{
		Title:       title,
		Description: fullDescription,
		Color:       color,
		Timestamp:   timestamp.Format(time.RFC3339),
	}

	return c.SendEmbedMessage(embed)
}
