package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/rs/zerolog"
)

const indexKey = "assessments_index.json"

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher writes assessment results and maintains the global index the
// dashboard reads. The per-assessment result is written first; the index is
// only ever updated after its result object exists, so the index never points
// at a missing result.
type Publisher struct {
	client s3API
	bucket string

	// MaxIndexRetries bounds the read-modify-write loop on the shared index.
	MaxIndexRetries int

	logger *zerolog.Logger
}

func NewPublisher(client s3API, bucket string, logger *zerolog.Logger) *Publisher {
	return &Publisher{
		client:          client,
		bucket:          bucket,
		MaxIndexRetries: 5,
		logger:          logger,
	}
}

func resultKey(assessmentID string) string {
	return fmt.Sprintf("assessments/%s/analysis_results.json", assessmentID)
}

// Publish stores the result document and registers it in the index.
// Republishing the same assessment overwrites the result and keeps a single
// index entry.
func (p *Publisher) Publish(ctx context.Context, result *models.AssessmentResult) error {
	key := resultKey(result.AssessmentID)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result %s: %w", result.AssessmentID, err)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put result %s: %w", result.AssessmentID, err)
	}

	entry := models.IndexEntry{
		AssessmentID: result.AssessmentID,
		Role:         result.Role,
		Status:       "analyzed",
		AnalyzedAt:   result.AnalyzedAt,
		ResultKey:    key,
	}

	if err := p.updateIndex(ctx, entry); err != nil {
		return err
	}

	p.logger.Info().
		Str("assessment_id", result.AssessmentID).
		Str("recommendation", string(result.Recommendation)).
		Msg("result published")
	return nil
}

// PublishFailure records a job that could not produce a result, so failed
// assessments stay visible on the dashboard instead of silently vanishing.
func (p *Publisher) PublishFailure(ctx context.Context, assessmentID, role string) error {
	entry := models.IndexEntry{
		AssessmentID: assessmentID,
		Role:         role,
		Status:       "failed",
		AnalyzedAt:   time.Now().UTC(),
	}
	return p.updateIndex(ctx, entry)
}

// updateIndex runs a conditional read-modify-write on the shared index. A
// precondition failure means a concurrent publisher won; the loop re-reads
// and re-applies until it sticks or retries run out.
func (p *Publisher) updateIndex(ctx context.Context, entry models.IndexEntry) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxIndexRetries; attempt++ {
		index, etag, err := p.LoadIndex(ctx)
		if err != nil {
			return err
		}

		upsert(index, entry)
		index.LastUpdated = time.Now().UTC()
		index.TotalCount = len(index.Assessments)

		data, err := json.MarshalIndent(index, "", "  ")
		if err != nil {
			return fmt.Errorf("encode index: %w", err)
		}

		input := &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(indexKey),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		}
		if etag == "" {
			input.IfNoneMatch = aws.String("*")
		} else {
			input.IfMatch = aws.String(etag)
		}

		if _, err := p.client.PutObject(ctx, input); err != nil {
			if isPreconditionFailed(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("put index: %w", err)
		}
		return nil
	}

	return fmt.Errorf("update index for %s: retries exhausted: %w", entry.AssessmentID, lastErr)
}

// upsert replaces an existing entry for the same assessment or prepends a new
// one, keeping the newest entries first.
func upsert(index *models.Index, entry models.IndexEntry) {
	for i, existing := range index.Assessments {
		if existing.AssessmentID == entry.AssessmentID {
			index.Assessments[i] = entry
			return
		}
	}
	index.Assessments = append([]models.IndexEntry{entry}, index.Assessments...)
}

// LoadIndex returns the current index and its ETag. A missing index object is
// an empty index with no revision.
func (p *Publisher) LoadIndex(ctx context.Context) (*models.Index, string, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(indexKey),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return &models.Index{Assessments: []models.IndexEntry{}}, "", nil
		}
		return nil, "", fmt.Errorf("get index: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read index: %w", err)
	}

	var index models.Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, "", fmt.Errorf("decode index: %w", err)
	}
	if index.Assessments == nil {
		index.Assessments = []models.IndexEntry{}
	}

	return &index, aws.ToString(out.ETag), nil
}

// LoadResult fetches one published result document.
func (p *Publisher) LoadResult(ctx context.Context, assessmentID string) (*models.AssessmentResult, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(resultKey(assessmentID)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result %s: %w", assessmentID, err)
	}
	defer out.Body.Close()

	var result models.AssessmentResult
	if err := json.NewDecoder(out.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", assessmentID, err)
	}
	return &result, nil
}

// ErrResultNotFound means no result has been published for the assessment.
var ErrResultNotFound = errors.New("result not found")

func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "PreconditionFailed" || code == "ConditionalRequestConflict"
	}
	return false
}
