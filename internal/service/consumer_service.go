package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"chatproxy-be/internal/dto"
	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/pkg/logger"
	"chatproxy-be/internal/repository/specification"
	"chatproxy-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type UploadPolicy struct {
	MaxBytes     int64
	AllowedMimes []string // exact ("application/pdf") or wildcard ("image/*")
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	policy     UploadPolicy
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	policy UploadPolicy,
	log logger.ILogger,
) IConsumerService {
	if topicName == "" {
		topicName = TopicFileUploadProcess
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		policy:     policy,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var job dto.FileUploadJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error("UPLOAD_CONSUMER", "Failed to unmarshal job", map[string]interface{}{"error": err})
		// Ack so a broken payload is not redelivered forever.
		msg.Ack()
		return
	}

	if err := cs.process(ctx, job); err != nil {
		cs.logger.Error("UPLOAD_CONSUMER", "Failed to process upload", map[string]interface{}{
			"file_id": job.FileId,
			"error":   err,
		})
		msg.Nack()
		return
	}

	msg.Ack()
}

func (cs *consumerService) process(ctx context.Context, job dto.FileUploadJob) error {
	repo := cs.uowFactory.NewUnitOfWork(ctx).FileUploadRepository()

	upload, err := repo.FindOne(ctx, specification.ByFileID{FileID: job.FileId})
	if err != nil {
		return err
	}
	if upload == nil {
		cs.logger.Warn("UPLOAD_CONSUMER", "Upload record missing, skipping", map[string]interface{}{"file_id": job.FileId})
		return nil
	}
	if upload.Processed {
		return nil
	}

	if reason := cs.policy.Violation(upload); reason != "" {
		cs.logger.Info("UPLOAD_CONSUMER", "Upload rejected", map[string]interface{}{
			"file_id": upload.FileId,
			"reason":  reason,
		})
		return repo.SetProcessingError(ctx, upload.FileId, reason)
	}

	return repo.MarkProcessed(ctx, upload.FileId)
}

// Violation returns why the upload is not acceptable, or "".
func (p UploadPolicy) Violation(upload *entity.FileUpload) string {
	if p.MaxBytes > 0 && upload.Size > p.MaxBytes {
		return fmt.Sprintf("size %d exceeds limit %d", upload.Size, p.MaxBytes)
	}
	if len(p.AllowedMimes) > 0 && !p.mimeAllowed(upload.MimeType) {
		return fmt.Sprintf("mime type %q not allowed", upload.MimeType)
	}
	return ""
}

func (p UploadPolicy) mimeAllowed(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, pattern := range p.AllowedMimes {
		if ok, _ := path.Match(strings.ToLower(pattern), mime); ok {
			return true
		}
	}
	return false
}
