// Package checkout is a client for the XML checkout gateway contract defined
// by this service. Payment providers are reached through an adapter that
// implements it.
package checkout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/recipe-service/internal/config"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body
const SignatureHeader = "X-Checkout-Signature"

// Client handles integration with the hosted checkout gateway
type Client struct {
	url        string
	merchantID string
	secret     []byte
	successURL string
	cancelURL  string
	client     *http.Client
	log        *logrus.Logger
}

// NewClient initializes a new checkout client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url:        cfg.CheckoutURL,
		merchantID: cfg.CheckoutMerchantID,
		secret:     []byte(cfg.CheckoutSecret),
		successURL: cfg.CheckoutSuccessURL,
		cancelURL:  cfg.CheckoutCancelURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildRequest creates a CreateSession request for a single item of priceID
func (c *Client) buildRequest(priceID string) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("CreateSession")
	root.CreateElement("MerchantId").SetText(c.merchantID)
	root.CreateElement("Mode").SetText("payment")
	root.CreateElement("PaymentMethod").SetText("card")

	item := root.CreateElement("LineItems").CreateElement("LineItem")
	item.CreateElement("Price").SetText(priceID)
	item.CreateElement("Quantity").SetText("1")

	root.CreateElement("SuccessUrl").SetText(c.successURL)
	root.CreateElement("CancelUrl").SetText(c.cancelURL)

	body, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	return body, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// sendRequest posts the request to the gateway
func (c *Client) sendRequest(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set(SignatureHeader, Sign(c.secret, body))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("Checkout XML response: %s", string(raw))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if msg := gatewayError(raw); msg != "" {
			return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return raw, nil
}

func gatewayError(raw []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return ""
	}
	if el := doc.FindElement("//Error/Message"); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// parseResponse extracts the session id and redirect URL
func (c *Client) parseResponse(raw []byte) (*models.CheckoutSession, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	if msg := doc.FindElement("//Error/Message"); msg != nil {
		return nil, fmt.Errorf("gateway error: %s", strings.TrimSpace(msg.Text()))
	}

	session := doc.FindElement("//Session")
	if session == nil {
		return nil, fmt.Errorf("no session found in XML")
	}
	id := session.FindElement("./Id")
	url := session.FindElement("./Url")
	if id == nil || url == nil || strings.TrimSpace(id.Text()) == "" || strings.TrimSpace(url.Text()) == "" {
		return nil, fmt.Errorf("session id or url missing in XML")
	}

	return &models.CheckoutSession{
		ID:  strings.TrimSpace(id.Text()),
		URL: strings.TrimSpace(url.Text()),
	}, nil
}

// CreateSession opens a hosted checkout session for one unit of priceID
func (c *Client) CreateSession(ctx context.Context, priceID string) (*models.CheckoutSession, error) {
	body, err := c.buildRequest(priceID)
	if err != nil {
		return nil, err
	}

	raw, err := c.sendRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	session, err := c.parseResponse(raw)
	if err != nil {
		return nil, err
	}

	c.log.Infof("Created checkout session %s for price %s", session.ID, priceID)
	return session, nil
}
