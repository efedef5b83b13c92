package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"homecare-dashboard/internal/medication"
	"homecare-dashboard/internal/model"
)

// Message renders the reminder title and body.
func Message(meds []model.Medication) (title, body string) {
	parts := make([]string, 0, len(meds))
	for _, m := range meds {
		parts = append(parts, fmt.Sprintf("%s %s %g %s", medication.Icon(m.Type), m.Name, m.Dose, strings.ToLower(m.Type)))
	}
	title = "Medication reminder"
	if len(meds) > 0 {
		title = fmt.Sprintf("Time for your %s medication", medication.FormatHour(meds[0].Hour))
	}
	return title, strings.Join(parts, ", ")
}

// LogNotifier only logs reminders; used when push is not configured.
type LogNotifier struct {
	Log *logrus.Logger
}

func (n LogNotifier) Notify(_ context.Context, userID string, meds []model.Medication) error {
	title, body := Message(meds)
	n.Log.WithFields(logrus.Fields{"user_id": userID, "title": title}).Info(body)
	return nil
}

type TokenStore interface {
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
	DeleteDeviceToken(ctx context.Context, userID, token string) error
}

type multicaster interface {
	SendEachForMulticast(ctx context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMNotifier pushes reminders to every device the user registered.
type FCMNotifier struct {
	client multicaster
	tokens TokenStore
	log    *logrus.Logger
	// dead reports whether a per-token error means the token is gone for good.
	dead func(error) bool
}

// NewFCM initialises firebase messaging from a service account file.
func NewFCM(ctx context.Context, credentialsFile string, tokens TokenStore, log *logrus.Logger) (*FCMNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCMNotifier{client: client, tokens: tokens, log: log, dead: messaging.IsUnregistered}, nil
}

func (n *FCMNotifier) Notify(ctx context.Context, userID string, meds []model.Medication) error {
	tokens, err := n.tokens.DeviceTokens(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	title, body := Message(meds)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := n.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: title, Body: body},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:    "default",
				Priority: messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: title, Body: body},
					Sound: "default",
				},
			},
		},
	})
	if err != nil {
		return err
	}

	for i, r := range resp.Responses {
		if r.Success || i >= len(tokens) {
			continue
		}
		if n.dead(r.Error) {
			if err := n.tokens.DeleteDeviceToken(ctx, "", tokens[i]); err != nil {
				n.log.WithError(err).Warn("drop dead device token")
			}
			continue
		}
		n.log.WithError(r.Error).WithField("user_id", userID).Warn("push failed for one device")
	}
	if resp.SuccessCount == 0 {
		return fmt.Errorf("no device accepted the reminder (%d failed)", resp.FailureCount)
	}
	return nil
}
