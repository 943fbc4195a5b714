package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"fleet-telemetry-backend/internal/model"
)

// AlertSender defines the interface for sending a web push notification.
type AlertSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of AlertSender using the
// webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans maintenance-alert jobs out to a fixed set of workers.
// Handlers dispatch a comment ID after a high or critical comment is
// written; the pool never blocks the request path beyond the buffered
// channel.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  AlertSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// SetSender swaps the push transport; tests inject a mock here.
func (wp *WorkerPool) SetSender(s AlertSender) {
	wp.sender = s
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Alert worker %d started", id)
	for {
		select {
		case commentID := <-wp.jobs:
			wp.sendAlertsForComment(ctx, commentID)
		case <-ctx.Done():
			log.Printf("Alert worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(commentID int64) {
	wp.jobs <- commentID
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

// sendAlertsForComment loads the comment, its machine, and the
// machine's subscriptions, then pushes an alert to each subscriber.
func (wp *WorkerPool) sendAlertsForComment(ctx context.Context, commentID int64) {
	var comment model.MaintenanceComment
	if err := wp.db.WithContext(ctx).First(&comment, commentID).Error; err != nil {
		log.Printf("Error fetching comment %d: %v", commentID, err)
		return
	}

	var subscriptions []model.AlertSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_machine_mapping smm ON smm.alert_subscription_endpoint = alert_subscriptions.endpoint").
		Where("smm.machine_id = ?", comment.MachineID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for machine %d: %v", comment.MachineID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	machineLabel := fmt.Sprintf("%d", comment.MachineID)
	var machine model.Machine
	if err := wp.db.WithContext(ctx).
		Select("name").
		First(&machine, comment.MachineID).Error; err != nil {
		log.Printf("Error fetching machine %d: %v", comment.MachineID, err)
	} else if machine.Name != "" {
		machineLabel = machine.Name
	}

	log.Printf("Sending %d alerts for machine %s (comment %d)", len(subscriptions), machineLabel, commentID)

	message := fmt.Sprintf("Machine %s: %s maintenance reported by %s", machineLabel, comment.Priority, comment.Username)
	for _, sub := range subscriptions {
		wp.sendAlert(ctx, sub, []byte(message))
	}
}

// sendAlert sends a single web push notification.
func (wp *WorkerPool) sendAlert(ctx context.Context, sub model.AlertSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending alert to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
