package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screentime/internal/models"
)

type mockSESClient struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailService_NotifyPermissionRequest(t *testing.T) {
	client := &mockSESClient{}
	svc := newEmailServiceWithClient(client, "noreply@example.com", "Screen Time", "https://app.example.com")

	family := &models.Family{ID: "ABC123", Name: "Smiths"}
	requester := &models.FamilyMember{ID: "parent-2", DisplayName: "Chris", Emails: []string{"chris@example.com"}}
	recipients := []*models.FamilyMember{
		{ID: "parent-1", DisplayName: "Pat", Emails: []string{"pat@example.com", "pat@work.example"}},
		{ID: "parent-3", DisplayName: "Lee"},
	}

	require.NoError(t, svc.NotifyPermissionRequest(context.Background(), family, requester, recipients))
	require.Len(t, client.inputs, 1)

	input := client.inputs[0]
	assert.Equal(t, "Screen Time <noreply@example.com>", aws.ToString(input.FromEmailAddress))
	assert.Equal(t, []string{"pat@example.com"}, input.Destination.ToAddresses)
	assert.Equal(t, "Chris is asking to join Smiths", aws.ToString(input.Content.Simple.Subject.Data))
	assert.Contains(t, aws.ToString(input.Content.Simple.Body.Text.Data), "https://app.example.com/")
}

func TestEmailService_SendFailure(t *testing.T) {
	client := &mockSESClient{err: errors.New("throttled")}
	svc := newEmailServiceWithClient(client, "noreply@example.com", "", "https://app.example.com")

	err := svc.NotifyPermissionRequest(context.Background(),
		&models.Family{ID: "ABC123", Name: "Smiths"},
		&models.FamilyMember{ID: "parent-2", DisplayName: "Chris"},
		[]*models.FamilyMember{{ID: "parent-1", Emails: []string{"pat@example.com"}}},
	)
	assert.ErrorContains(t, err, "throttled")
}

func TestEmailService_Disabled(t *testing.T) {
	svc, err := NewEmailService(context.Background(), "us-east-1", "", "", "")
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())

	err = svc.NotifyPermissionRequest(context.Background(),
		&models.Family{ID: "ABC123"}, &models.FamilyMember{ID: "p"}, []*models.FamilyMember{{Emails: []string{"x@y.z"}}})
	assert.NoError(t, err)
}
