package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/models"
)

// Payload is the notification shown by the browser.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Sender fans browser push messages out to every stored subscription using
// the server's VAPID key pair.
type Sender struct {
	subscriptions *mongo.Collection
	publicKey     string
	privateKey    string
	subject       string
}

// NewSender builds a sender over the subscriptions collection.
func NewSender(subscriptions *mongo.Collection, publicKey, privateKey, subject string) *Sender {
	return &Sender{
		subscriptions: subscriptions,
		publicKey:     publicKey,
		privateKey:    privateKey,
		subject:       subject,
	}
}

// SendToAll pushes the payload to every subscription. Each endpoint is
// attempted independently and concurrently; a failure never blocks delivery
// to the others. Endpoints the push service reports gone are deleted.
func (s *Sender) SendToAll(ctx context.Context, payload Payload) {
	if s.publicKey == "" || s.privateKey == "" {
		return
	}

	cursor, err := s.subscriptions.Find(ctx, bson.M{})
	if err != nil {
		logrus.WithError(err).Error("failed to load push subscriptions")
		return
	}
	var subs []models.Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		logrus.WithError(err).Error("failed to decode push subscriptions")
		return
	}
	if len(subs) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("failed to encode push payload")
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub models.Subscription) {
			defer wg.Done()
			s.send(body, sub)
		}(sub)
	}
	wg.Wait()

	logrus.WithField("subscribers", len(subs)).Info("push notifications sent")
}

func (s *Sender) send(body []byte, sub models.Subscription) {
	resp, err := webpush.SendNotification(body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60,
	})
	if err != nil {
		logrus.WithError(err).WithField("endpoint", sub.Endpoint).Warn("push send failed")
		return
	}
	defer resp.Body.Close()

	// The push service tells us the endpoint is gone; drop the record.
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.subscriptions.DeleteOne(ctx, bson.M{"_id": sub.ID}); err != nil {
			logrus.WithError(err).Warn("failed to prune gone subscription")
		}
		return
	}
	if resp.StatusCode >= 400 {
		logrus.WithFields(logrus.Fields{
			"endpoint": sub.Endpoint,
			"status":   resp.StatusCode,
		}).Warn("push service rejected notification")
	}
}
