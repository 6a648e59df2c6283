package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const (
	// PutLogEvents accepts at most 10,000 events and roughly 1 MiB per
	// call; each event costs its message length plus 26 bytes of overhead.
	maxBatchEvents   = 5000
	maxBatchBytes    = 1 << 20
	perEventOverhead = 26

	// DefaultLogStream receives records when the URI names none.
	DefaultLogStream = "wssrelay"
)

func init() {
	Register("cloudwatch", openCloudWatch)
}

// CloudWatchSink batches records into PutLogEvents calls against one log
// group and stream. Accept flushes early when a batch reaches the API
// limits, so a single call never exceeds them.
type CloudWatchSink struct {
	client *cloudwatchlogs.Client
	group  string
	stream string

	events []types.InputLogEvent
	bytes  int
}

// openCloudWatch is the Opener for the cloudwatch scheme. The URI path is
// the log group; stream, region and profile come from query parameters,
// falling back to OpenOptions for the AWS settings.
func openCloudWatch(u *url.URL, opts OpenOptions) (Sink, error) {
	group := u.Path
	if group == "" {
		return nil, fmt.Errorf("cloudwatch URI requires a log group path")
	}

	profile := u.Query().Get("profile")
	if profile == "" {
		profile = opts.Profile
	}
	region := u.Query().Get("region")
	if region == "" {
		region = opts.Region
	}
	stream := u.Query().Get("stream")
	if stream == "" {
		stream = DefaultLogStream
	}

	return NewCloudWatchSink(group, stream, profile, region)
}

// NewCloudWatchSink creates the SDK client and makes sure the log stream
// exists. The log group itself must already exist.
func NewCloudWatchSink(group, stream, profile, region string) (*CloudWatchSink, error) {
	cfg, err := loadAWSConfig(profile, region)
	if err != nil {
		return nil, err
	}

	s := &CloudWatchSink{
		client: cloudwatchlogs.NewFromConfig(cfg),
		group:  group,
		stream: stream,
	}

	if err := s.ensureStream(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// loadAWSConfig loads the AWS configuration with optional profile and region.
func loadAWSConfig(profile, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cfg, nil
}

func (s *CloudWatchSink) ensureStream(ctx context.Context) error {
	_, err := s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.stream),
	})
	var exists *types.ResourceAlreadyExistsException
	if errors.As(err, &exists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create log stream %s in %s: %w", s.stream, s.group, err)
	}
	return nil
}

func (s *CloudWatchSink) Accept(ctx context.Context, rec Record) error {
	msg := rec.Envelope + " " + rec.Raw
	cost := len(msg) + perEventOverhead

	if len(s.events) > 0 && (len(s.events) >= maxBatchEvents || s.bytes+cost > maxBatchBytes) {
		if err := s.Flush(ctx); err != nil {
			return err
		}
	}

	s.events = append(s.events, types.InputLogEvent{
		Message:   aws.String(msg),
		Timestamp: aws.Int64(time.Now().UnixMilli()),
	})
	s.bytes += cost
	return nil
}

func (s *CloudWatchSink) Flush(ctx context.Context) error {
	if len(s.events) == 0 {
		return nil
	}

	_, err := s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.stream),
		LogEvents:     s.events,
	})
	if err != nil {
		return fmt.Errorf("failed to put log events: %w", err)
	}

	s.events = s.events[:0]
	s.bytes = 0
	return nil
}

func (s *CloudWatchSink) Close() error {
	return s.Flush(context.Background())
}
