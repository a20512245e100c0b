package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

// PushStore is the subset of the push repository the sink needs.
type PushStore interface {
	ListByUser(ctx context.Context, userID uint) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

// PushPayload is the JSON body the service worker receives.
type PushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type sendFunc func(ctx context.Context, message []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// WebPushSink delivers reminders through the Web Push protocol.
type WebPushSink struct {
	store   PushStore
	options *webpush.Options
	log     *zap.SugaredLogger
	send    sendFunc
}

func NewWebPushSink(store PushStore, subject, publicKey, privateKey string, log *zap.SugaredLogger) *WebPushSink {
	return &WebPushSink{
		store: store,
		options: &webpush.Options{
			Subscriber:      subject,
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			TTL:             30,
		},
		log:  log.With("component", "webpush"),
		send: webpush.SendNotificationWithContext,
	}
}

func (s *WebPushSink) Name() string { return "webpush" }

func (s *WebPushSink) Reachable(ctx context.Context, userID uint) (bool, error) {
	n, err := s.store.CountByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Deliver sends to every subscription of the user. Gone or mismatched subscriptions are pruned.
func (s *WebPushSink) Deliver(ctx context.Context, n Notification) error {
	subs, err := s.store.ListByUser(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("fetch subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(PushPayload{
		Title: n.Title,
		Body:  n.Body,
		Tag:   "task-" + n.TaskID,
		Data:  map[string]any{"taskId": n.TaskID},
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var errs []error
	sent := 0
	for _, sub := range subs {
		resp, err := s.send(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, s.options)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		status := resp.StatusCode
		if status >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			s.log.Debugw("push service error", "status", status, "body", string(body))
		}
		resp.Body.Close()

		switch {
		case status == http.StatusGone || status == http.StatusNotFound || status == http.StatusForbidden:
			if err := s.store.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				s.log.Warnw("prune subscription", "error", err)
			} else {
				s.log.Infow("pruned push subscription", "user_id", n.UserID, "status", status)
			}
			errs = append(errs, fmt.Errorf("push endpoint rejected with %d", status))
		case status >= 400:
			errs = append(errs, fmt.Errorf("push endpoint returned %d", status))
		default:
			sent++
		}
	}

	if sent == 0 {
		return fmt.Errorf("push to user %d: %w", n.UserID, errors.Join(errs...))
	}
	return nil
}
