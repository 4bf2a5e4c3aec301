package notify

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

// RetryJob is a notification that failed its first delivery attempt.
type RetryJob struct {
	OrderID string
	ChatID  int64
	Text    string
}

type retrySend struct {
	job     RetryJob
	attempt int
}

// FailureRecorder persists notifications the actor gave up on.
type FailureRecorder interface {
	RecordFailedNotification(ctx context.Context, n *repository.FailedNotification) error
}

// RetryActor re-sends failed notifications with a bounded attempt count and
// records terminal failures for manual review. Webhook handlers always
// answer 200 to the provider, so this actor is what keeps their internal
// failures from vanishing.
type RetryActor struct {
	sender     Sender
	recorder   FailureRecorder
	maxRetries int
	logger     *zap.Logger
}

func (a *RetryActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *retrySend:
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := a.sender.SendMessage(sendCtx, msg.job.ChatID, msg.job.Text)
		cancel()

		if err == nil {
			a.logger.Info("Notification retry delivered",
				zap.String("order_id", msg.job.OrderID),
				zap.Int64("chat_id", msg.job.ChatID),
				zap.Int("attempt", msg.attempt))
			return
		}

		if msg.attempt >= a.maxRetries {
			a.logger.Error("Notification retries exhausted",
				zap.String("order_id", msg.job.OrderID),
				zap.Int64("chat_id", msg.job.ChatID),
				zap.Error(err))
			if a.recorder != nil {
				recordCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if recordErr := a.recorder.RecordFailedNotification(recordCtx, &repository.FailedNotification{
					OrderID:   msg.job.OrderID,
					ChatID:    msg.job.ChatID,
					Text:      msg.job.Text,
					Attempts:  msg.attempt,
					LastError: err.Error(),
				}); recordErr != nil {
					a.logger.Error("Failed to record dead notification", zap.Error(recordErr))
				}
			}
			return
		}

		a.logger.Warn("Notification retry failed, rescheduling",
			zap.String("order_id", msg.job.OrderID),
			zap.Int("attempt", msg.attempt),
			zap.Error(err))

		next := &retrySend{job: msg.job, attempt: msg.attempt + 1}
		self := ctx.Self()
		root := ctx.ActorSystem().Root
		delay := time.Duration(msg.attempt) * 5 * time.Second
		time.AfterFunc(delay, func() {
			root.Send(self, next)
		})

	case *actor.Started:
		a.logger.Info("Notification retry actor started")

	case *actor.Stopped:
		a.logger.Info("Notification retry actor stopped")
	}
}

// Dispatcher owns the actor system and hands jobs to the retry actor.
type Dispatcher struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func StartRetryDispatcher(sender Sender, recorder FailureRecorder, maxRetries int, logger *zap.Logger) (*Dispatcher, error) {
	if maxRetries < 1 {
		maxRetries = 3
	}

	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return &RetryActor{
			sender:     sender,
			recorder:   recorder,
			maxRetries: maxRetries,
			logger:     logger.Named("retry-actor"),
		}
	})
	pid, err := system.Root.SpawnNamed(props, "notification-retry")
	if err != nil {
		return nil, err
	}

	return &Dispatcher{system: system, pid: pid, logger: logger}, nil
}

func (d *Dispatcher) Enqueue(job RetryJob) {
	d.system.Root.Send(d.pid, &retrySend{job: job, attempt: 1})
}

func (d *Dispatcher) Shutdown() {
	d.system.Root.Stop(d.pid)
	d.system.Shutdown()
}
