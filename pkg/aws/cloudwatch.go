package aws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// LogWriter ships log lines to a CloudWatch Logs stream. It implements
// io.Writer so it can sit behind a zap sink; a failed put drops the line
// rather than failing the write, stdout remains the durable copy.
type LogWriter struct {
	cw       *cloudwatchlogs.Client
	group    string
	stream   string
	retained int32

	mu      sync.Mutex
	nextSeq *string
}

// NewLogWriter creates the log group (idempotent) and a fresh per-process
// stream inside it.
func NewLogWriter(ctx context.Context, cfg sdkaws.Config, group string) (*LogWriter, error) {
	w := &LogWriter{
		cw:       cloudwatchlogs.NewFromConfig(cfg),
		group:    group,
		stream:   fmt.Sprintf("portal-%d", time.Now().Unix()),
		retained: 30,
	}

	_, err := w.cw.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: sdkaws.String(w.group),
	})
	if err != nil {
		var exists *types.ResourceAlreadyExistsException
		if !errors.As(err, &exists) {
			return nil, fmt.Errorf("create log group %q: %w", group, err)
		}
	}
	if _, err := w.cw.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(w.group),
		RetentionInDays: sdkaws.Int32(w.retained),
	}); err != nil {
		return nil, fmt.Errorf("set retention on %q: %w", group, err)
	}

	if _, err := w.cw.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(w.group),
		LogStreamName: sdkaws.String(w.stream),
	}); err != nil {
		return nil, fmt.Errorf("create log stream %q: %w", w.stream, err)
	}

	return w, nil
}

// Write implements io.Writer. zap may call it from multiple goroutines, so
// the sequence token is guarded.
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := w.cw.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  sdkaws.String(w.group),
		LogStreamName: sdkaws.String(w.stream),
		SequenceToken: w.nextSeq,
		LogEvents: []types.InputLogEvent{{
			Message:   sdkaws.String(string(p)),
			Timestamp: sdkaws.Int64(time.Now().UnixMilli()),
		}},
	})
	if err != nil {
		return len(p), nil
	}
	w.nextSeq = out.NextSequenceToken
	return len(p), nil
}

// Sync satisfies zapcore.WriteSyncer; puts are synchronous already.
func (w *LogWriter) Sync() error { return nil }
