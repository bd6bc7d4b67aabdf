package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/rs/zerolog"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type transcribeAPI interface {
	StartTranscriptionJob(ctx context.Context, params *awstranscribe.StartTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *awstranscribe.GetTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Service downloads provider recordings, archives them in S3 and runs AWS
// Transcribe jobs over them.
type Service struct {
	s3Client   s3API
	jobs       transcribeAPI
	httpClient httpDoer
	bucket     string
	accountSID string
	authToken  string
	language   string

	PollInterval time.Duration
	PollTimeout  time.Duration

	logger *zerolog.Logger
}

type ServiceConfig struct {
	Bucket     string
	AccountSID string
	AuthToken  string
	Language   string
}

func NewService(cfg aws.Config, svcCfg ServiceConfig, logger *zerolog.Logger) *Service {
	language := svcCfg.Language
	if language == "" {
		language = "en-US"
	}
	return &Service{
		s3Client:     s3.NewFromConfig(cfg),
		jobs:         awstranscribe.NewFromConfig(cfg),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		bucket:       svcCfg.Bucket,
		accountSID:   svcCfg.AccountSID,
		authToken:    svcCfg.AuthToken,
		language:     language,
		PollInterval: 3 * time.Second,
		PollTimeout:  3 * time.Minute,
		logger:       logger,
	}
}

// Transcribe fetches the recording from the provider, stores a copy under the
// assessment prefix and runs a transcription job to completion.
func (s *Service) Transcribe(ctx context.Context, assessmentID, questionKey, recordingURL string) (string, error) {
	transcriptKey := fmt.Sprintf("assessments/%s/transcripts/%s.json", assessmentID, questionKey)

	// A reprocess run reuses the transcript of an earlier job instead of
	// paying for transcription again.
	if text, err := s.fetchTranscript(ctx, transcriptKey); err == nil && text != "" {
		s.logger.Info().
			Str("assessment_id", assessmentID).
			Str("question", questionKey).
			Msg("reusing stored transcript")
		return text, nil
	}

	audio, err := s.downloadRecording(ctx, recordingURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionUnavailable, err)
	}

	audioKey := fmt.Sprintf("assessments/%s/recordings/%s.mp3", assessmentID, questionKey)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &audioKey,
		Body:        bytes.NewReader(audio),
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: archive recording: %v", ErrTranscriptionUnavailable, err)
	}

	jobName := fmt.Sprintf("%s_%s_%d", assessmentID, questionKey, time.Now().Unix())

	_, err = s.jobs.StartTranscriptionJob(ctx, &awstranscribe.StartTranscriptionJobInput{
		TranscriptionJobName: &jobName,
		LanguageCode:         types.LanguageCode(s.language),
		MediaFormat:          types.MediaFormatMp3,
		Media: &types.Media{
			MediaFileUri: aws.String(fmt.Sprintf("s3://%s/%s", s.bucket, audioKey)),
		},
		OutputBucketName: &s.bucket,
		OutputKey:        &transcriptKey,
	})
	if err != nil {
		return "", fmt.Errorf("%w: start job %s: %v", ErrTranscriptionUnavailable, jobName, err)
	}

	s.logger.Info().
		Str("assessment_id", assessmentID).
		Str("question", questionKey).
		Str("job", jobName).
		Msg("transcription job started")

	if err := s.waitForJob(ctx, jobName); err != nil {
		return "", err
	}

	return s.fetchTranscript(ctx, transcriptKey)
}

// downloadRecording pulls the audio from the provider. Twilio recording URLs
// require basic auth and serve mp3 when the extension is appended.
func (s *Service) downloadRecording(ctx context.Context, recordingURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL+".mp3", nil)
	if err != nil {
		return nil, fmt.Errorf("build recording request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download recording: unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (s *Service) waitForJob(ctx context.Context, jobName string) error {
	deadline := time.Now().Add(s.PollTimeout)

	for {
		output, err := s.jobs.GetTranscriptionJob(ctx, &awstranscribe.GetTranscriptionJobInput{
			TranscriptionJobName: &jobName,
		})
		if err != nil {
			return fmt.Errorf("%w: poll job %s: %v", ErrTranscriptionUnavailable, jobName, err)
		}

		switch output.TranscriptionJob.TranscriptionJobStatus {
		case types.TranscriptionJobStatusCompleted:
			return nil
		case types.TranscriptionJobStatusFailed:
			reason := ""
			if output.TranscriptionJob.FailureReason != nil {
				reason = *output.TranscriptionJob.FailureReason
			}
			return fmt.Errorf("%w: job %s failed: %s", ErrTranscriptionUnavailable, jobName, reason)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: job %s did not finish within %s", ErrTranscriptionUnavailable, jobName, s.PollTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.PollInterval):
		}
	}
}

// transcriptDocument mirrors the shape of the Transcribe output file.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func (s *Service) fetchTranscript(ctx context.Context, key string) (string, error) {
	output, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return "", fmt.Errorf("%w: fetch transcript %s: %v", ErrTranscriptionUnavailable, key, err)
	}
	defer output.Body.Close()

	var doc transcriptDocument
	if err := json.NewDecoder(output.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: decode transcript %s: %v", ErrTranscriptionUnavailable, key, err)
	}

	if len(doc.Results.Transcripts) == 0 {
		return "", nil
	}
	return doc.Results.Transcripts[0].Transcript, nil
}
