package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	config "github.com/DaniDevGS/triven-shop/configs"
	"github.com/DaniDevGS/triven-shop/internal/models"
	"github.com/DaniDevGS/triven-shop/internal/orders"
)

// SESAPI is the part of the SES client the sender needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type EmailSender struct {
	client SESAPI
	sender string
}

func NewEmailSender(ctx context.Context, cfg config.EmailConfig) (*EmailSender, error) {
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("sender email address is not configured in environment variables")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return NewEmailSenderWithClient(ses.NewFromConfig(awsCfg), cfg.SenderEmail), nil
}

func NewEmailSenderWithClient(client SESAPI, sender string) *EmailSender {
	return &EmailSender{client: client, sender: sender}
}

// SendOrderConfirmation mails the buyer the receipt of a freshly placed order.
func (e *EmailSender) SendOrderConfirmation(ctx context.Context, r orders.Receipt) error {
	subject := fmt.Sprintf("Order %s received - pending payment validation", r.Code)

	var rows, lines strings.Builder
	for _, item := range r.Items {
		fmt.Fprintf(&rows, "<li>%s x%d - $%s</li>", html.EscapeString(item.Title), item.Quantity, item.Total.StringFixed(2))
		fmt.Fprintf(&lines, "  - %s x%d - $%s\n", item.Title, item.Quantity, item.Total.StringFixed(2))
	}

	bodyHTML := fmt.Sprintf(`
        <html>
        <body>
            <p>Hi %s,</p>
            <p>We received your order <strong>%s</strong>. We will review your payment proof shortly.</p>
            <ul>%s</ul>
            <p><strong>Total: $%s</strong></p>
            <p>Triven</p>
        </body>
        </html>`, html.EscapeString(r.Buyer), r.Code, rows.String(), r.Total.StringFixed(2))

	bodyText := fmt.Sprintf(
		"Hi %s,\n\nWe received your order %s. We will review your payment proof shortly.\n\n%s\nTotal: $%s\n\nTriven",
		r.Buyer, r.Code, lines.String(), r.Total.StringFixed(2))

	return e.send(ctx, r.Email, subject, bodyHTML, bodyText)
}

// SendReviewOutcome tells the buyer whether the payment was accepted.
func (e *EmailSender) SendReviewOutcome(ctx context.Context, recipient string, order models.Order) error {
	verdict := "approved"
	if order.Status == models.OrderRejected {
		verdict = "rejected"
	}
	subject := fmt.Sprintf("Order %s %s", order.Code, verdict)

	text := fmt.Sprintf("Your order %s has been %s.", order.Code, verdict)
	if order.ManagerNote != "" {
		text += "\n\nNote from the shop: " + order.ManagerNote
	}
	bodyHTML := "<html><body><p>" + strings.ReplaceAll(html.EscapeString(text), "\n", "<br>") + "</p></body></html>"

	return e.send(ctx, recipient, subject, bodyHTML, text)
}

func (e *EmailSender) send(ctx context.Context, recipient, subject, bodyHTML, bodyText string) error {
	if recipient == "" {
		return fmt.Errorf("recipient email address is empty")
	}

	input := &ses.SendEmailInput{
		Source: aws.String(e.sender),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(bodyHTML),
				},
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(bodyText),
				},
			},
		},
	}

	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
