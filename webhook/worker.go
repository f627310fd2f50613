package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gymstack/webhook-engine/webhook/signature"
)

/* Outbound wire contract. Header names are stable; receivers verify the
 * hex HMAC-SHA256 signature over the raw body with their subscription
 * secret and can use the timestamp for replay-window validation.
 */
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEventType = "X-Webhook-Event"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderDelivery  = "X-Webhook-Delivery"
)

// DefaultExcerptLimit bounds the stored response-body excerpt.
const DefaultExcerptLimit = 1024

// Heartbeater records worker liveness for the ops dashboard.
type Heartbeater interface {
	Beat(ctx context.Context, workerID, status string) error
}

/* Worker consumes delivery ids from the queue, performs the HTTP POST and
 * records the outcome. It is the only component that transitions a
 * delivery out of Pending/Retrying. The queue's consumer group hands each
 * message to one worker; the store's attempt-count guard catches any
 * duplicate that slips through, so attempts for one delivery are strictly
 * sequential.
 */
type Worker struct {
	ID      string
	Repo    Repository
	Queue   Queue
	Backoff BackoffPolicy
	HTTP    *http.Client
	Log     *slog.Logger
	// ExcerptLimit bounds the stored response-body excerpt in bytes.
	ExcerptLimit int
	// Heartbeat is optional; nil disables liveness reporting.
	Heartbeat Heartbeater
	// ConsumePause is the wait after a failed Consume call, so an
	// unreachable queue does not spin the loop.
	ConsumePause time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewWorker creates a delivery worker with a bounded HTTP client.
func NewWorker(id string, repo Repository, queue Queue, backoff BackoffPolicy, timeout time.Duration, log *slog.Logger) *Worker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Worker{
		ID:           id,
		Repo:         repo,
		Queue:        queue,
		Backoff:      backoff,
		HTTP:         &http.Client{Timeout: timeout},
		Log:          log,
		ExcerptLimit: DefaultExcerptLimit,
		ConsumePause: time.Second,
		limiters:     make(map[string]*rate.Limiter),
	}
}

// Run consumes and processes deliveries until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		w.beat(ctx, "idle")

		msgs, err := w.Queue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.Log.Error("consuming deliveries", "worker", w.ID, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.ConsumePause):
			}
			continue
		}

		w.beat(ctx, "processing")
		for _, msg := range msgs {
			w.Process(ctx, msg.DeliveryID)
			if err := w.Queue.Ack(ctx, msg); err != nil {
				w.Log.Error("acking delivery", "worker", w.ID, "delivery_id", msg.DeliveryID, "error", err)
			}
		}
	}
}

/* Process runs one attempt for the delivery. Failures never propagate to
 * the event producer: every outcome is captured on the delivery record and
 * surfaced only through the operator API.
 */
func (w *Worker) Process(ctx context.Context, deliveryID string) {
	d, err := w.Repo.GetDelivery(ctx, deliveryID)
	if err != nil {
		// Cascaded deletes can race queued messages; nothing to do.
		if errors.Is(err, ErrNotFound) {
			return
		}
		w.Log.Error("loading delivery", "delivery_id", deliveryID, "error", err)
		return
	}

	if !d.Status.Attemptable() {
		// Duplicate queue message for a settled delivery. At-least-once
		// delivery makes these expected; skip silently.
		return
	}

	wh, err := w.Repo.GetWebhook(ctx, d.WebhookID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return
		}
		w.Log.Error("loading webhook", "delivery_id", d.ID, "webhook_id", d.WebhookID, "error", err)
		return
	}

	if err := w.waitForRateLimit(ctx, wh); err != nil {
		return
	}

	w.attempt(ctx, wh, d)
}

func (w *Worker) attempt(ctx context.Context, wh Webhook, d Delivery) {
	attempt := d.Attempts + 1
	now := time.Now().UTC()

	// The secret is fetched once, at attempt start. A rotation racing this
	// attempt does not change the key mid-flight.
	secret, err := signature.ParseSecret(wh.Secret)
	if err != nil {
		w.failFast(ctx, d, attempt, fmt.Errorf("parsing signing secret: %w", err))
		return
	}

	body, err := d.EnvelopeBody(now)
	if err != nil {
		w.failFast(ctx, d, attempt, err)
		return
	}

	sig, err := signature.Sign(secret, body)
	if err != nil {
		w.failFast(ctx, d, attempt, fmt.Errorf("signing delivery payload: %w", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		w.failFast(ctx, d, attempt, fmt.Errorf("building delivery request: %w", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderEventType, d.EventType)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(now.Unix(), 10))
	req.Header.Set(HeaderDelivery, d.ID)

	resp, err := w.HTTP.Do(req)
	if err != nil {
		// Timeout, connection refused, DNS failure: all transient.
		w.recordFailure(ctx, d, attempt, nil, err.Error(), now)
		return
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	if code >= 200 && code < 300 {
		if err := w.Repo.RecordSuccess(ctx, d.ID, attempt, code, now); err != nil {
			w.logRecordErr(d.ID, err)
		}
		return
	}

	excerpt := w.readExcerpt(resp.Body)

	if permanentFailure(code) {
		/* Policy: a 4xx response (other than 408 and 429) means the
		 * receiver rejected the request and a replay will not change its
		 * mind. The attempt is recorded and the delivery goes straight to
		 * Exhausted; no retries are consumed waiting on it.
		 */
		if err := w.Repo.RecordFailure(ctx, d.ID, attempt, &code, excerpt, nil, now); err != nil {
			w.logRecordErr(d.ID, err)
		}
		return
	}

	w.recordFailure(ctx, d, attempt, &code, excerpt, now)
}

/* recordFailure handles the transient path: schedule a retry when budget
 * remains, otherwise the delivery is exhausted and nextRetryAt stays nil.
 */
func (w *Worker) recordFailure(ctx context.Context, d Delivery, attempt int, code *int, excerpt string, now time.Time) {
	var nextRetryAt *time.Time
	if !w.Backoff.Exhausted(attempt, d.MaxAttempts) {
		at := now.Add(w.Backoff.NextDelay(attempt))
		nextRetryAt = &at
	}

	if err := w.Repo.RecordFailure(ctx, d.ID, attempt, code, excerpt, nextRetryAt, now); err != nil {
		w.logRecordErr(d.ID, err)
		return
	}

	if nextRetryAt != nil {
		if err := w.Queue.Schedule(ctx, d.ID, *nextRetryAt); err != nil {
			// The scheduler's due-retry reseed will pick it up from the store.
			w.Log.Error("scheduling retry", "delivery_id", d.ID, "error", err)
		}
	}
}

/* failFast is the SigningFailure class: a programming-error level fault in
 * building or signing the request. Logged and terminal immediately, no
 * backoff wait is consumed.
 */
func (w *Worker) failFast(ctx context.Context, d Delivery, attempt int, cause error) {
	w.Log.Error("delivery attempt failed fatally", "delivery_id", d.ID, "attempt", attempt, "error", cause)
	if err := w.Repo.RecordFailure(ctx, d.ID, attempt, nil, cause.Error(), nil, time.Now().UTC()); err != nil {
		w.logRecordErr(d.ID, err)
	}
}

func (w *Worker) logRecordErr(deliveryID string, err error) {
	if errors.Is(err, ErrAttemptConflict) {
		// Another worker recorded this attempt first; its outcome stands.
		w.Log.Warn("delivery attempt already recorded", "delivery_id", deliveryID)
		return
	}
	w.Log.Error("recording delivery outcome", "delivery_id", deliveryID, "error", err)
}

func (w *Worker) readExcerpt(r io.Reader) string {
	limit := w.ExcerptLimit
	if limit <= 0 {
		limit = DefaultExcerptLimit
	}
	b, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return ""
	}
	return string(b)
}

/* waitForRateLimit enforces the subscription's requests-per-minute budget.
 * Limiters are cached per webhook id; a changed rate takes effect on the
 * next cache miss after restart or eviction.
 */
func (w *Worker) waitForRateLimit(ctx context.Context, wh Webhook) error {
	if wh.RateLimit <= 0 {
		return nil
	}

	w.mu.Lock()
	limiter, ok := w.limiters[wh.ID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(wh.RateLimit)/60.0), 1)
		w.limiters[wh.ID] = limiter
	}
	w.mu.Unlock()

	return limiter.Wait(ctx)
}

func (w *Worker) beat(ctx context.Context, status string) {
	if w.Heartbeat == nil {
		return
	}
	if err := w.Heartbeat.Beat(ctx, w.ID, status); err != nil {
		w.Log.Warn("recording worker heartbeat", "worker", w.ID, "error", err)
	}
}

/* permanentFailure classifies 4xx responses, excluding request timeout and
 * rate limiting, as not worth retrying. Documented and tested policy.
 */
func permanentFailure(code int) bool {
	if code < 400 || code > 499 {
		return false
	}
	return code != http.StatusRequestTimeout && code != http.StatusTooManyRequests
}
