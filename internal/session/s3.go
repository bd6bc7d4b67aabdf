package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/innovativesol/voice-assessment/internal/models"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps one state document per assessment at
// assessments/{id}/state.json. The object ETag serves as the revision for
// conditional writes.
type S3Store struct {
	client s3API
	bucket string
}

func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func stateKey(assessmentID string) string {
	return fmt.Sprintf("assessments/%s/state.json", assessmentID)
}

func (s *S3Store) Get(ctx context.Context, assessmentID string) (*models.CallSession, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(stateKey(assessmentID)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("get session %s: %w", assessmentID, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read session %s: %w", assessmentID, err)
	}

	var session models.CallSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, "", fmt.Errorf("decode session %s: %w", assessmentID, err)
	}

	return &session, aws.ToString(out.ETag), nil
}

func (s *S3Store) Put(ctx context.Context, session *models.CallSession, revision string) (string, error) {
	return s.write(ctx, session, &s3.PutObjectInput{IfMatch: aws.String(revision)})
}

func (s *S3Store) Create(ctx context.Context, session *models.CallSession) (string, error) {
	return s.write(ctx, session, &s3.PutObjectInput{IfNoneMatch: aws.String("*")})
}

func (s *S3Store) write(ctx context.Context, session *models.CallSession, input *s3.PutObjectInput) (string, error) {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode session %s: %w", session.AssessmentID, err)
	}

	input.Bucket = aws.String(s.bucket)
	input.Key = aws.String(stateKey(session.AssessmentID))
	input.Body = bytes.NewReader(data)
	input.ContentType = aws.String("application/json")

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailed(err) {
			if input.IfNoneMatch != nil {
				return "", ErrAlreadyExists
			}
			return "", ErrRevisionConflict
		}
		return "", fmt.Errorf("put session %s: %w", session.AssessmentID, err)
	}

	return aws.ToString(out.ETag), nil
}

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
