package changefeed

import (
	"context"
	"encoding/json"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/Techyana/RWP-Pilot/models"
)

// SQSFeed is the push backend: ledger entries published to SNS land on an
// SQS queue this consumer long-polls. Messages are deleted after handling;
// redeliveries are dropped by the entry-id dedup window.
type SQSFeed struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
	out      chan Event
	seen     map[string]struct{}
	seenCap  int
}

func NewSQSFeed(cfg sdkaws.Config, queueURL string, logger *zap.Logger) *SQSFeed {
	return &SQSFeed{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
		logger:   logger,
		out:      make(chan Event, 64),
		seen:     make(map[string]struct{}),
		seenCap:  4096,
	}
}

func (f *SQSFeed) Events() <-chan Event { return f.out }

func (f *SQSFeed) Run(ctx context.Context) {
	defer close(f.out)
	f.logger.Info("sqs feed started", zap.String("queue", f.queueURL))
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("sqs feed stopped")
			return
		default:
			f.poll(ctx)
		}
	}
}

func (f *SQSFeed) poll(ctx context.Context) {
	output, err := f.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &f.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     5, // long polling
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		f.logger.Error("sqs receive error", zap.Error(err))
		time.Sleep(5 * time.Second)
		return
	}

	for _, msg := range output.Messages {
		if msg.Body != nil {
			f.handle(ctx, *msg.Body)
		}
		if msg.ReceiptHandle != nil {
			_, err := f.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      &f.queueURL,
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				f.logger.Warn("sqs delete failed", zap.Error(err))
			}
		}
	}
}

// snsEnvelope unwraps the SNS -> SQS message wrapper.
type snsEnvelope struct {
	Message string `json:"Message"`
}

func (f *SQSFeed) handle(ctx context.Context, body string) {
	payload := body
	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		payload = envelope.Message
	}

	var entry models.Transaction
	if err := json.Unmarshal([]byte(payload), &entry); err != nil || entry.ID == "" {
		f.logger.Warn("sqs feed dropped unparseable message")
		return
	}

	if _, dup := f.seen[entry.ID]; dup {
		return
	}
	if len(f.seen) >= f.seenCap {
		f.seen = make(map[string]struct{})
	}
	f.seen[entry.ID] = struct{}{}

	select {
	case f.out <- Event{Entry: entry}:
	case <-ctx.Done():
	}
}
