package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/rs/zerolog"
)

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, fmt.Errorf("no such key %s", aws.ToString(params.Key))
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type fakeTranscribe struct {
	StartedJob   string
	StartError   error
	Statuses     []types.TranscriptionJobStatus
	polls        int
	FailureCause string
	// OnComplete runs when a poll reports completion, standing in for the
	// service writing the transcript object.
	OnComplete func()
}

func (f *fakeTranscribe) StartTranscriptionJob(ctx context.Context, params *awstranscribe.StartTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error) {
	if f.StartError != nil {
		return nil, f.StartError
	}
	f.StartedJob = aws.ToString(params.TranscriptionJobName)
	return &awstranscribe.StartTranscriptionJobOutput{}, nil
}

func (f *fakeTranscribe) GetTranscriptionJob(ctx context.Context, params *awstranscribe.GetTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error) {
	status := f.Statuses[len(f.Statuses)-1]
	if f.polls < len(f.Statuses) {
		status = f.Statuses[f.polls]
	}
	f.polls++

	if status == types.TranscriptionJobStatusCompleted && f.OnComplete != nil {
		f.OnComplete()
	}

	job := &types.TranscriptionJob{TranscriptionJobStatus: status}
	if f.FailureCause != "" {
		job.FailureReason = aws.String(f.FailureCause)
	}
	return &awstranscribe.GetTranscriptionJobOutput{TranscriptionJob: job}, nil
}

type fakeHTTP struct {
	StatusCode  int
	Body        string
	Error       error
	LastRequest *http.Request
}

func (f *fakeHTTP) Do(req *http.Request) (*http.Response, error) {
	f.LastRequest = req
	if f.Error != nil {
		return nil, f.Error
	}
	return &http.Response{
		StatusCode: f.StatusCode,
		Body:       io.NopCloser(strings.NewReader(f.Body)),
	}, nil
}

func newTestService(storage *fakeS3, jobs *fakeTranscribe, client *fakeHTTP) *Service {
	logger := zerolog.Nop()
	return &Service{
		s3Client:     storage,
		jobs:         jobs,
		httpClient:   client,
		bucket:       "assessments",
		accountSID:   "AC123",
		authToken:    "secret",
		language:     "en-US",
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
		logger:       &logger,
	}
}

func TestTranscribe_Success(t *testing.T) {
	storage := &fakeS3{objects: map[string][]byte{}}
	jobs := &fakeTranscribe{
		Statuses: []types.TranscriptionJobStatus{
			types.TranscriptionJobStatusInProgress,
			types.TranscriptionJobStatusCompleted,
		},
		OnComplete: func() {
			storage.objects["assessments/a1/transcripts/q1.json"] = []byte(`{"results":{"transcripts":[{"transcript":"I would check their ID first."}]}}`)
		},
	}
	client := &fakeHTTP{StatusCode: http.StatusOK, Body: "mp3-bytes"}

	text, err := newTestService(storage, jobs, client).Transcribe(context.Background(), "a1", "q1", "https://api.twilio.com/rec/1")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "I would check their ID first." {
		t.Errorf("unexpected transcript %q", text)
	}

	if got := client.LastRequest.URL.String(); got != "https://api.twilio.com/rec/1.mp3" {
		t.Errorf("expected mp3 download URL, got %s", got)
	}
	if user, _, ok := client.LastRequest.BasicAuth(); !ok || user != "AC123" {
		t.Error("expected basic auth on the recording download")
	}
	if got := storage.objects["assessments/a1/recordings/q1.mp3"]; string(got) != "mp3-bytes" {
		t.Error("expected recording archived under the assessment prefix")
	}
	if !strings.HasPrefix(jobs.StartedJob, "a1_q1_") {
		t.Errorf("unexpected job name %q", jobs.StartedJob)
	}
}

func TestTranscribe_ReusesStoredTranscript(t *testing.T) {
	storage := &fakeS3{objects: map[string][]byte{
		"assessments/a1/transcripts/q1.json": []byte(`{"results":{"transcripts":[{"transcript":"already transcribed"}]}}`),
	}}
	jobs := &fakeTranscribe{}
	client := &fakeHTTP{StatusCode: http.StatusOK, Body: "mp3-bytes"}

	text, err := newTestService(storage, jobs, client).Transcribe(context.Background(), "a1", "q1", "https://api.twilio.com/rec/1")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "already transcribed" {
		t.Errorf("unexpected transcript %q", text)
	}
	if client.LastRequest != nil || jobs.StartedJob != "" {
		t.Error("expected no download or transcription job for a stored transcript")
	}
}

func TestTranscribe_DownloadFailure(t *testing.T) {
	client := &fakeHTTP{StatusCode: http.StatusNotFound}
	service := newTestService(&fakeS3{objects: map[string][]byte{}}, &fakeTranscribe{}, client)

	_, err := service.Transcribe(context.Background(), "a1", "q1", "https://api.twilio.com/rec/1")
	if !errors.Is(err, ErrTranscriptionUnavailable) {
		t.Errorf("expected ErrTranscriptionUnavailable, got %v", err)
	}
}

func TestTranscribe_JobFailure(t *testing.T) {
	jobs := &fakeTranscribe{
		Statuses:     []types.TranscriptionJobStatus{types.TranscriptionJobStatusFailed},
		FailureCause: "unsupported audio",
	}
	client := &fakeHTTP{StatusCode: http.StatusOK, Body: "mp3-bytes"}

	_, err := newTestService(&fakeS3{objects: map[string][]byte{}}, jobs, client).Transcribe(context.Background(), "a1", "q1", "https://api.twilio.com/rec/1")
	if !errors.Is(err, ErrTranscriptionUnavailable) {
		t.Errorf("expected ErrTranscriptionUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported audio") {
		t.Errorf("expected failure reason in error, got %v", err)
	}
}

func TestTranscribe_PollTimeout(t *testing.T) {
	jobs := &fakeTranscribe{Statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusInProgress}}
	client := &fakeHTTP{StatusCode: http.StatusOK, Body: "mp3-bytes"}
	service := newTestService(&fakeS3{objects: map[string][]byte{}}, jobs, client)
	service.PollTimeout = 5 * time.Millisecond

	_, err := service.Transcribe(context.Background(), "a1", "q1", "https://api.twilio.com/rec/1")
	if !errors.Is(err, ErrTranscriptionUnavailable) {
		t.Errorf("expected ErrTranscriptionUnavailable, got %v", err)
	}
}

func TestTranscribe_EmptyTranscript(t *testing.T) {
	storage := &fakeS3{objects: map[string][]byte{
		"assessments/a1/transcripts/q1.json": []byte(`{"results":{"transcripts":[]}}`),
	}}
	jobs := &fakeTranscribe{Statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusCompleted}}
	client := &fakeHTTP{StatusCode: http.StatusOK, Body: "mp3-bytes"}

	text, err := newTestService(storage, jobs, client).Transcribe(context.Background(), "a1", "q1", "https://api.twilio.com/rec/1")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty transcript, got %q", text)
	}
}
