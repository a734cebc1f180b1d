package notify

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"internship-placement/internal/placement"
)

// Channel is an optional secondary delivery path attempted after the
// notification row is durable. A failing channel never affects the row.
type Channel interface {
	Name() string
	Send(ctx context.Context, notification *placement.Notification) error
}

// Interfaces over the AWS clients for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EmailChannel delivers notifications over SES, resolving the recipient
// address from the users table.
type EmailChannel struct {
	db        *sql.DB
	sesClient SESService
	fromEmail string
}

func NewEmailChannel(db *sql.DB, sesClient SESService, fromEmail string) *EmailChannel {
	return &EmailChannel{db: db, sesClient: sesClient, fromEmail: fromEmail}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, n *placement.Notification) error {
	email, _, err := recipientContact(ctx, c.db, n.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if email == "" {
		return nil
	}

	_, err = c.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(n.Title)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(n.Message)},
				Html: &types.Content{Data: aws.String(n.Message)},
			},
		},
		Source: aws.String(c.fromEmail),
	})
	return err
}

// SMSChannel delivers over SNS. Only decision notifications go out as SMS;
// the rest stay in-app and email.
type SMSChannel struct {
	db        *sql.DB
	snsClient SNSService
}

func NewSMSChannel(db *sql.DB, snsClient SNSService) *SMSChannel {
	return &SMSChannel{db: db, snsClient: snsClient}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Send(ctx context.Context, n *placement.Notification) error {
	if n.Kind != placement.KindDecisionIssued {
		return nil
	}

	_, phone, err := recipientContact(ctx, c.db, n.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if phone == "" {
		return nil
	}

	_, err = c.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(n.Message),
	})
	return err
}

func recipientContact(ctx context.Context, db *sql.DB, userID string) (string, string, error) {
	var email, phone sql.NullString
	err := db.QueryRowContext(ctx, `SELECT email, phone FROM users WHERE id = $1`, userID).Scan(&email, &phone)
	if err != nil {
		return "", "", err
	}
	return email.String, phone.String, nil
}
