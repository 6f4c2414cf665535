// Package email sends transactional mail through Amazon SES v2.
package email

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/cbroglie/mustache"
	"github.com/sirupsen/logrus"

	"traceroot/internal/config"
	"traceroot/internal/core/domain/organization"
)

//go:embed templates/invitation.mustache
var invitationTemplate string

// SESMailer implements organization.InvitationMailer on Amazon SES.
type SESMailer struct {
	client  *sesv2.Client
	sender  string
	baseURL string
	ttlDays int
	logger  *logrus.Logger
}

func NewSESMailer(ctx context.Context, cfg config.EmailConfig, ttlDays int, logger *logrus.Logger) (*SESMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMode(aws.RetryModeAdaptive),
		awsconfig.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{
		client:  sesv2.NewFromConfig(awsCfg),
		sender:  cfg.Sender,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		ttlDays: ttlDays,
		logger:  logger,
	}, nil
}

func (m *SESMailer) SendInvitation(ctx context.Context, inv *organization.Invitation, orgName, token string) error {
	acceptURL := m.baseURL + "/invitations/accept?token=" + url.QueryEscape(token)

	html, err := mustache.Render(invitationTemplate, map[string]any{
		"organizationName": orgName,
		"role":             strings.ToLower(string(inv.Role)),
		"acceptURL":        acceptURL,
		"expiresInDays":    m.ttlDays,
	})
	if err != nil {
		return fmt.Errorf("render invitation template: %w", err)
	}

	subject := fmt.Sprintf("You've been invited to %s on TraceRoot", orgName)
	_, err = m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination: &sestypes.Destination{
			ToAddresses: []string{inv.Email},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(html)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send invitation email: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"org_id": inv.OrgID.String(),
		"email":  inv.Email,
	}).Info("Invitation email sent")
	return nil
}
