// Package notifier tells buyers and the shop about order activity: e-mail
// through SES, SMS through Africa's Talking, a WhatsApp deep link, a PDF
// receipt and events on the order topic.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/DaniDevGS/triven-shop/internal/events"
	"github.com/DaniDevGS/triven-shop/internal/models"
	"github.com/DaniDevGS/triven-shop/internal/orders"
)

type Mailer interface {
	SendOrderConfirmation(ctx context.Context, r orders.Receipt) error
	SendReviewOutcome(ctx context.Context, recipient string, order models.Order) error
}

type ManagerAlerter interface {
	NotifyManager(ctx context.Context, r orders.Receipt) error
}

// Dispatcher fans order notifications out in the background. Any of its
// channels may be nil, in which case that channel is skipped.
type Dispatcher struct {
	mailer  Mailer
	alerter ManagerAlerter
	events  events.Publisher
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(mailer Mailer, alerter ManagerAlerter, publisher events.Publisher) *Dispatcher {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Dispatcher{mailer: mailer, alerter: alerter, events: publisher, timeout: 15 * time.Second}
}

// OrderPlaced must only be called after the checkout transaction committed.
func (d *Dispatcher) OrderPlaced(order models.Order, r orders.Receipt) {
	if d.mailer != nil && r.Email != "" {
		d.spawn("email", r.Code, func(ctx context.Context) error {
			return d.mailer.SendOrderConfirmation(ctx, r)
		})
	}
	if d.alerter != nil {
		d.spawn("sms", r.Code, func(ctx context.Context) error {
			return d.alerter.NotifyManager(ctx, r)
		})
	}
	ev := events.FromOrder(order)
	d.spawn("event", r.Code, func(ctx context.Context) error {
		return d.events.Publish(ctx, ev)
	})
}

// OrderReviewed announces an approval or rejection.
func (d *Dispatcher) OrderReviewed(order models.Order) {
	if d.mailer != nil && order.User != nil && order.User.Email != nil {
		recipient := *order.User.Email
		d.spawn("email", order.Code, func(ctx context.Context) error {
			return d.mailer.SendReviewOutcome(ctx, recipient, order)
		})
	}
	ev := events.FromOrder(order)
	d.spawn("event", order.Code, func(ctx context.Context) error {
		return d.events.Publish(ctx, ev)
	})
}

// Wait blocks until every notification started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) spawn(channel, code string, send func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logFailure(channel, code, err)
		}
	}()
}
