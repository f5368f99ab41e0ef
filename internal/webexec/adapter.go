package webexec

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Messaging error codes.
const (
	WAMissingContact  = "WA_MISSING_CONTACT"
	WANotLoggedIn     = "WA_NOT_LOGGED_IN"
	WAContactNotFound = "WA_CONTACT_NOT_FOUND"
	WAChatNotReady    = "WA_CHAT_NOT_READY"
)

// messagingSelectors is the isolated selector table for the messaging-web
// adapter.
var messagingSelectors = struct {
	loggedInMarker string
	searchBox      string
	contactResult  string
	messageBox     string
	sendButton     string
}{
	loggedInMarker: `div[data-testid="chat-list"]`,
	searchBox:      `div[contenteditable="true"][data-tab="3"]`,
	contactResult:  `span[title]`,
	messageBox:     `div[contenteditable="true"][data-tab="10"]`,
	sendButton:     `button[data-testid="send"]`,
}

// MessagingAdapter implements web_send_message against a web-messaging
// surface (WhatsApp Web's DOM shape is the grounding reference; the
// selector table is isolated so a different surface only needs new
// selectors, not a new handler).
type MessagingAdapter struct{}

// NewMessagingAdapter constructs a messaging adapter.
func NewMessagingAdapter() *MessagingAdapter { return &MessagingAdapter{} }

// Send locates the contact and delivers the message, or returns a
// WebExecutionError tagged with the specific WA_* failure code.
func (a *MessagingAdapter) Send(ctx context.Context, page *rod.Page, contact, message string) error {
	if contact == "" {
		return &WebExecutionError{Code: WAMissingContact, Message: "no contact specified"}
	}

	if _, err := page.Timeout(3 * time.Second).Element(messagingSelectors.loggedInMarker); err != nil {
		return &WebExecutionError{Code: WANotLoggedIn, Message: "messaging surface not logged in"}
	}

	searchBox, err := page.Timeout(2 * time.Second).Element(messagingSelectors.searchBox)
	if err != nil {
		return &WebExecutionError{Code: WAChatNotReady, Message: "search box not found"}
	}
	if err := searchBox.Input(contact); err != nil {
		return &WebExecutionError{Code: WAChatNotReady, Message: fmt.Sprintf("type contact: %v", err)}
	}
	_ = page.WaitIdle(1 * time.Second)

	result, err := page.Timeout(2 * time.Second).Element(messagingSelectors.contactResult)
	if err != nil {
		return &WebExecutionError{Code: WAContactNotFound, Message: fmt.Sprintf("no result for %q", contact)}
	}
	if err := result.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &WebExecutionError{Code: WAContactNotFound, Message: fmt.Sprintf("click result: %v", err)}
	}
	_ = page.WaitIdle(1 * time.Second)

	messageBox, err := page.Timeout(2 * time.Second).Element(messagingSelectors.messageBox)
	if err != nil {
		return &WebExecutionError{Code: WAChatNotReady, Message: "message box not found after opening chat"}
	}
	if err := messageBox.Input(message); err != nil {
		return &WebExecutionError{Code: WAChatNotReady, Message: fmt.Sprintf("type message: %v", err)}
	}

	sendBtn, err := page.Timeout(1 * time.Second).Element(messagingSelectors.sendButton)
	if err != nil {
		return &WebExecutionError{Code: WAChatNotReady, Message: "send button not found"}
	}
	if err := sendBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &WebExecutionError{Code: WAChatNotReady, Message: fmt.Sprintf("click send: %v", err)}
	}
	return nil
}
