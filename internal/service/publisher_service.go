package service

import (
	"context"
	"encoding/json"

	"chatproxy-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const TopicFileUploadProcess = "FILE_UPLOAD_PROCESS"

// IPublisherService queues work on the in-process bus.
type IPublisherService interface {
	PublishFileUploadJob(ctx context.Context, job dto.FileUploadJob) error
}

type publisherService struct {
	publisher message.Publisher
	topicName string
}

func NewPublisherService(publisher message.Publisher, topicName string) IPublisherService {
	if topicName == "" {
		topicName = TopicFileUploadProcess
	}
	return &publisherService{
		publisher: publisher,
		topicName: topicName,
	}
}

func (p *publisherService) PublishFileUploadJob(ctx context.Context, job dto.FileUploadJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topicName, msg)
}
