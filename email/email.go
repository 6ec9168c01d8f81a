package email

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	mailjet "github.com/mailjet/mailjet-apiv3-go/v3"

	"github.com/electmap/newsletter-backend/models"
	"github.com/electmap/newsletter-backend/util"
)

// ErrNotConfigured is returned by SendNewsletter when the provider
// credentials are missing from the environment. The service still boots
// without them; only sending is unavailable.
var ErrNotConfigured = errors.New("email: provider credentials are not set")

const senderVerifyHint = "Check that the sender address has been verified with the email provider."

// Upper bound on how much of an unstructured provider response we echo
// back to the caller.
const maxRawErrorLen = 300

// ProviderError carries the most actionable detail we could extract
// from a rejected provider call, plus a fixed remediation hint.
type ProviderError struct {
	Message string
	Hint    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("email provider rejected the send: %s", e.Message)
}

// subscriberList is the part of the subscription store the dispatcher
// needs: the addresses of every active subscriber.
type subscriberList interface {
	ActiveEmails(ctx context.Context) []string
}

// mailClient wraps the one provider call we make, so tests can swap in
// a mock.
type mailClient interface {
	SendMailV31(data *mailjet.MessagesV31, options ...mailjet.RequestOptions) (*mailjet.ResultsV31, error)
}

// Config stores variables needed to build and send the newsletter
// announcement.
type Config struct {
	apiKey      string
	secretKey   string
	sender      string
	senderName  string
	website     string // Linked from the email footer.
	client      mailClient
	subscribers subscriberList
}

// MakeConfigFromEnv initializes our email config object with
// environment variables.
func MakeConfigFromEnv(subscribers subscriberList) (Config, error) {
	varErrs := util.Errors{}
	c := Config{
		apiKey:      os.Getenv("MAILJET_API_KEY"),
		secretKey:   os.Getenv("MAILJET_SECRET_KEY"),
		sender:      util.RequireEnv("NEWSLETTER_FROM_ADDRESS", &varErrs),
		senderName:  os.Getenv("NEWSLETTER_FROM_NAME"),
		website:     util.RequireEnv("FRONTEND_WEBSITE_LINK", &varErrs),
		subscribers: subscribers,
	}
	if len(varErrs) > 0 {
		return c, varErrs
	}
	if c.apiKey == "" || c.secretKey == "" {
		log.Println("Warning: Mailjet credentials not set, newsletter sending is disabled")
		return c, nil
	}
	c.client = mailjet.NewMailjetClient(c.apiKey, c.secretKey)
	return c, nil
}

// Announcement holds the fields of a single newsletter announcement.
// Subject, Title and URL are required; Excerpt and Date are optional.
type Announcement struct {
	Subject string
	Title   string
	Excerpt string
	URL     string
	Date    string
}

// SendNewsletter dispatches one announcement to every active subscriber
// as a single batched provider call, one addressing entry per recipient
// with a shared sender and shared HTML/text bodies. It returns the
// number of recipients attempted. Zero active subscribers is a no-op,
// not an error. Because the call is batched, per-recipient failures
// inside the provider are invisible here; success is all-or-nothing.
func (c Config) SendNewsletter(ctx context.Context, a Announcement) (int, error) {
	if a.Subject == "" || a.Title == "" || a.URL == "" {
		return 0, &models.ValidationError{Message: "subject, blogTitle and blogUrl are required"}
	}
	if c.client == nil {
		return 0, ErrNotConfigured
	}
	emails := c.subscribers.ActiveEmails(ctx)
	if len(emails) == 0 {
		log.Println("no active subscribers, skipping newsletter send")
		return 0, nil
	}
	html, text, err := renderAnnouncement(a, c.website)
	if err != nil {
		return 0, err
	}
	messages := make([]mailjet.InfoMessagesV31, 0, len(emails))
	for _, address := range emails {
		messages = append(messages, mailjet.InfoMessagesV31{
			From:     &mailjet.RecipientV31{Email: c.sender, Name: c.senderName},
			To:       &mailjet.RecipientsV31{{Email: address}},
			Subject:  a.Subject,
			TextPart: text,
			HTMLPart: html,
		})
	}
	if _, err := c.client.SendMailV31(&mailjet.MessagesV31{Info: messages}); err != nil {
		return 0, providerError(err)
	}
	log.Printf("newsletter %q sent to %d subscribers", a.Subject, len(emails))
	return len(emails), nil
}

// providerError extracts the first structured error message from a
// Mailjet feedback response, falling back to the raw error text
// truncated to a bounded length.
func providerError(err error) *ProviderError {
	var feedback *mailjet.APIFeedbackErrorsV31
	if errors.As(err, &feedback) {
		for _, message := range feedback.Messages {
			if len(message.Errors) > 0 {
				return &ProviderError{Message: message.Errors[0].ErrorMessage, Hint: senderVerifyHint}
			}
		}
	}
	raw := err.Error()
	if len(raw) > maxRawErrorLen {
		raw = raw[:maxRawErrorLen]
	}
	return &ProviderError{Message: raw, Hint: senderVerifyHint}
}
