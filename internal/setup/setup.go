package setup

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/innovativesol/voice-assessment/internal/callflow"
	"github.com/innovativesol/voice-assessment/internal/config"
	"github.com/innovativesol/voice-assessment/internal/llm/bedrock"
	"github.com/innovativesol/voice-assessment/internal/publisher"
	"github.com/innovativesol/voice-assessment/internal/queue"
	"github.com/innovativesol/voice-assessment/internal/scoring"
	"github.com/innovativesol/voice-assessment/internal/session"
	"github.com/innovativesol/voice-assessment/internal/telephony"
	"github.com/innovativesol/voice-assessment/internal/transcribe"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Config struct {
	AWSRegion        string
	AssessmentBucket string
	ClaudeModelID    string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	WebhookBaseURL   string
	AudioBaseURL     string

	RedisAddr     string
	RedisPassword string
	ScoringStream string
	ScoringGroup  string

	RolesConfigPath string
	APIPort         string
}

func LoadConfig() *Config {
	return &Config{
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		AssessmentBucket: getEnv("ASSESSMENT_BUCKET", ""),
		ClaudeModelID:    getEnv("CLAUDE_MODEL_ID", ""),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		WebhookBaseURL:   getEnv("WEBHOOK_BASE_URL", ""),
		AudioBaseURL:     getEnv("AUDIO_BASE_URL", ""),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		ScoringStream:    getEnv("SCORING_STREAM", queue.DefaultStream),
		ScoringGroup:     getEnv("SCORING_GROUP", "scoring-group"),
		RolesConfigPath:  getEnv("ROLES_CONFIG", ""),
		APIPort:          getEnv("API_PORT", "18080"),
	}
}

// APIDependencies is everything the webhook and dashboard server needs.
type APIDependencies struct {
	Engine    *callflow.Engine
	Gateway   *telephony.Gateway
	Publisher *publisher.Publisher
	Bank      *config.Bank
}

// WorkerDependencies is everything the scoring consumer needs.
type WorkerDependencies struct {
	Scorer    *scoring.Engine
	Publisher *publisher.Publisher
	Redis     *redis.Client
	Bank      *config.Bank
}

func WireAPI(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*APIDependencies, error) {
	bank, err := config.LoadBank(cfg.RolesConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	gateway, err := telephony.NewGateway(telephony.GatewayConfig{
		AccountSID:          cfg.TwilioAccountSID,
		AuthToken:           cfg.TwilioAuthToken,
		FromNumber:          cfg.TwilioFromNumber,
		WebhookBaseURL:      cfg.WebhookBaseURL,
		AudioBaseURL:        cfg.AudioBaseURL,
		SilenceTimeoutSecs:  bank.Call.SilenceTimeoutSeconds,
		RepromptWindowSecs:  bank.Call.RepromptWindowSeconds,
		MaxRecordingSeconds: bank.Call.MaxRecordingSeconds,
	}, bank, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create telephony gateway: %w", err)
	}

	redisClient, err := queue.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	producer := queue.NewProducer(redisClient, cfg.ScoringStream, logger)

	store := session.NewS3Store(s3Client, cfg.AssessmentBucket)
	engine := callflow.NewEngine(store, bank, producer, gateway, logger)

	return &APIDependencies{
		Engine:    engine,
		Gateway:   gateway,
		Publisher: publisher.NewPublisher(s3Client, cfg.AssessmentBucket, logger),
		Bank:      bank,
	}, nil
}

func WireWorker(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*WorkerDependencies, error) {
	bank, err := config.LoadBank(cfg.RolesConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	llmClient, err := bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bedrock client: %w", err)
	}

	transcriber := transcribe.NewService(awsCfg, transcribe.ServiceConfig{
		Bucket:     cfg.AssessmentBucket,
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
	}, logger)

	store := session.NewS3Store(s3Client, cfg.AssessmentBucket)
	evaluator := scoring.NewEvaluator(llmClient, logger)
	scorer := scoring.NewEngine(store, bank, transcriber, evaluator, logger)

	redisClient, err := queue.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &WorkerDependencies{
		Scorer:    scorer,
		Publisher: publisher.NewPublisher(s3Client, cfg.AssessmentBucket, logger),
		Redis:     redisClient,
		Bank:      bank,
	}, nil
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}
