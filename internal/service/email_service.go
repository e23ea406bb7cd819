package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"screentime/internal/models"
)

// Compile-time check that EmailService can notify approvers.
var _ ApprovalNotifier = (*EmailService)(nil)

// emailSender is the part of the SES client the service uses
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends approval request emails via Amazon SES
type EmailService struct {
	client     emailSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	if fromEmail == "" {
		slog.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("Email service enabled", "from", fromEmail, "region", awsRegion)
	return newEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL), nil
}

func newEmailServiceWithClient(client emailSender, fromEmail, fromName, appBaseURL string) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// NotifyPermissionRequest emails every recipient that requester is waiting
// for approval. Each recipient's first email address is used. All sends are
// attempted; the errors are joined.
func (s *EmailService) NotifyPermissionRequest(ctx context.Context, family *models.Family, requester *models.FamilyMember, recipients []*models.FamilyMember) error {
	if !s.enabled {
		slog.Debug("Skipping approval email (service disabled)", "family", family.ID, "requester", requester.ID)
		return nil
	}

	subject := fmt.Sprintf("%s is asking to join %s", requester.DisplayName, family.Name)
	var errs []error
	for _, r := range recipients {
		if len(r.Emails) == 0 {
			continue
		}
		htmlBody, textBody := s.approvalBodies(family, requester, r)
		if err := s.sendEmail(ctx, r.Emails[0], subject, htmlBody, textBody); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *EmailService) approvalBodies(family *models.Family, requester, recipient *models.FamilyMember) (string, string) {
	link := strings.TrimRight(s.appBaseURL, "/") + "/"
	requesterEmail := ""
	if len(requester.Emails) > 0 {
		requesterEmail = " (" + requester.Emails[0] + ")"
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #6b7280; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #6b7280; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Approval Request</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p><strong>%s</strong>%s joined <strong>%s</strong> as a parent and is waiting for your approval.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Review Request</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Screen Time. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(recipient.DisplayName), html.EscapeString(requester.DisplayName),
		html.EscapeString(requesterEmail), html.EscapeString(family.Name), link)

	textBody := fmt.Sprintf(`Hi %s,

%s%s joined %s as a parent and is waiting for your approval.

Review the request: %s

---
This is an automated email from Screen Time. Please do not reply.
`, recipient.DisplayName, requester.DisplayName, requesterEmail, family.Name, link)

	return htmlBody, textBody
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	messageID := ""
	if result != nil && result.MessageId != nil {
		messageID = *result.MessageId
	}
	slog.Info("Email sent", "to", toEmail, "subject", subject, "message_id", messageID)
	return nil
}
