package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"chatproxy-be/internal/dto"
	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/pkg/logger"
	"chatproxy-be/pkg/events"
	"chatproxy-be/pkg/flowise"
	"chatproxy-be/pkg/streamparser"

	"github.com/google/uuid"
)

type ProxyState string

const (
	StateOpening   ProxyState = "OPENING"
	StateStreaming ProxyState = "STREAMING"
	StateCompleted ProxyState = "COMPLETED"
	StateFailed    ProxyState = "FAILED"
)

var (
	ErrCallerDisconnected = errors.New("caller disconnected")
	ErrStreamInterrupted  = errors.New("provider stream interrupted")
)

// ProviderEventError is an error or abort event sent by the provider.
type ProviderEventError struct {
	Event   string
	Message string
}

func (e *ProviderEventError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Event, e.Message)
}

// PredictionStreamer opens provider streams. *flowise.Client satisfies it.
type PredictionStreamer interface {
	StreamPrediction(ctx context.Context, chatflowID string, request flowise.PredictionRequest) (io.ReadCloser, error)
}

// EventSink delivers events to the caller. A Send error means the caller is
// gone.
type EventSink interface {
	Send(event streamparser.Event) error
}

type ProxyOutcome struct {
	State        ProxyState
	SessionId    uuid.UUID
	Relayed      int
	Content      string
	Disconnected bool
	Err          error
	PersistErr   error
}

type ChatProxyOptions struct {
	MaxUploadBytes int64
	FlushTimeout   time.Duration
	ReadBufferSize int
	// MaxEventBytes caps one provider stream line; longer lines are dropped.
	MaxEventBytes int
}

type IChatProxyService interface {
	// Open checks entitlement, resolves the session, registers uploads and
	// opens the provider stream. ctx must outlive the returned stream.
	Open(ctx context.Context, caller Caller, req *dto.ChatStreamRequest) (*ProxyStream, error)
}

type chatProxyService struct {
	entitlement EntitlementChecker
	history     IChatHistoryService
	dedup       IFileDedupIndex
	streamer    PredictionStreamer
	jobs        IPublisherService
	events      IEventPublisher
	logger      logger.ILogger
	opts        ChatProxyOptions
}

func NewChatProxyService(
	entitlement EntitlementChecker,
	history IChatHistoryService,
	dedup IFileDedupIndex,
	streamer PredictionStreamer,
	jobs IPublisherService,
	eventPublisher IEventPublisher,
	log logger.ILogger,
	opts ChatProxyOptions,
) IChatProxyService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = 10 * time.Second
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = 4096
	}
	if eventPublisher == nil {
		eventPublisher = NewNopEventPublisher()
	}
	return &chatProxyService{
		entitlement: entitlement,
		history:     history,
		dedup:       dedup,
		streamer:    streamer,
		jobs:        jobs,
		events:      eventPublisher,
		logger:      log,
		opts:        opts,
	}
}

// ProxyStream is one proxied request between Open and Run.
type ProxyStream struct {
	svc        *chatProxyService
	caller     Caller
	chatflowId string
	question   string
	session    *entity.ChatSession
	fileIds    []uuid.UUID
	newUploads []*entity.FileUpload
	body       io.ReadCloser
	openedAt   time.Time
	state      ProxyState
}

func (p *ProxyStream) SessionId() uuid.UUID {
	return p.session.SessionId
}

func (p *ProxyStream) State() ProxyState {
	return p.state
}

func (s *chatProxyService) Open(ctx context.Context, caller Caller, req *dto.ChatStreamRequest) (*ProxyStream, error) {
	if _, err := s.entitlement.Check(ctx, caller, req.ChatflowId); err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = deriveTopic(req.Question)
	}

	// Every upload is decoded and checked before anything is stored.
	pending, err := s.prepareUploads(caller, req.ChatflowId, req.Uploads)
	if err != nil {
		return nil, err
	}

	session, created, err := s.history.ResolveSession(ctx, caller.UserId, req.ChatflowId, req.SessionId, topic)
	if err != nil {
		return nil, err
	}

	p := &ProxyStream{
		svc:        s,
		caller:     caller,
		chatflowId: req.ChatflowId,
		question:   req.Question,
		session:    session,
		openedAt:   time.Now().UTC(),
		state:      StateOpening,
	}

	uploads, err := s.registerUploads(ctx, p, pending)
	if err != nil {
		s.abandon(ctx, p, created)
		return nil, err
	}

	body, err := s.streamer.StreamPrediction(ctx, req.ChatflowId, flowise.PredictionRequest{
		Question:       req.Question,
		OverrideConfig: map[string]interface{}{"sessionId": session.SessionId.String()},
		Uploads:        uploads,
	})
	if err != nil {
		p.state = StateFailed
		s.logger.Warn("CHAT_PROXY", "Failed to open provider stream", map[string]interface{}{
			"chatflow_id": req.ChatflowId,
			"session_id":  session.SessionId,
			"error":       err.Error(),
		})
		// The question is kept even though no answer was produced.
		out := &ProxyOutcome{State: StateFailed, SessionId: session.SessionId, Err: err}
		p.finish(ctx, "", nil, out)
		return nil, err
	}

	p.body = body
	return p, nil
}

type pendingUpload struct {
	candidate *entity.FileUpload
	forward   flowise.Upload
}

func (s *chatProxyService) prepareUploads(caller Caller, chatflowId string, reqs []dto.UploadRequest) ([]pendingUpload, error) {
	out := make([]pendingUpload, 0, len(reqs))

	for _, u := range reqs {
		candidate := &entity.FileUpload{
			OriginalName: u.Name,
			MimeType:     u.Mime,
			UserId:       caller.UserId,
			ChatflowId:   chatflowId,
			UploadType:   u.Type,
		}
		forward := flowise.Upload{Data: u.Data, Type: u.Type, Name: u.Name, Mime: u.Mime}

		if u.Type == entity.UploadTypeFile {
			content, mime, err := decodeInlineUpload(u.Data, s.opts.MaxUploadBytes)
			if err != nil {
				return nil, fmt.Errorf("upload %q: %w", u.Name, err)
			}
			if mime != "" {
				candidate.MimeType = mime
			}
			candidate.Size = int64(len(content))
			candidate.ContentHash = HashContent(content)
			forward.Data = "data:" + candidate.MimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
		}

		out = append(out, pendingUpload{candidate: candidate, forward: forward})
	}

	return out, nil
}

func (s *chatProxyService) registerUploads(ctx context.Context, p *ProxyStream, pending []pendingUpload) ([]flowise.Upload, error) {
	out := make([]flowise.Upload, 0, len(pending))

	for _, u := range pending {
		u.candidate.SessionId = p.session.SessionId
		u.candidate.UploadedAt = time.Now().UTC()

		upload, reused, err := s.dedup.Register(ctx, u.candidate)
		if err != nil {
			return nil, err
		}

		p.fileIds = append(p.fileIds, upload.FileId)
		if !reused {
			p.newUploads = append(p.newUploads, upload)
		}
		out = append(out, u.forward)
	}

	return out, nil
}

// abandon removes what a failed Open stored before the exchange existed.
func (s *chatProxyService) abandon(ctx context.Context, p *ProxyStream, sessionCreated bool) {
	p.state = StateFailed
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.FlushTimeout)
	defer cancel()

	if err := s.dedup.Discard(cleanupCtx, p.newUploads); err != nil {
		s.logger.Warn("CHAT_PROXY", "Failed to discard uploads", map[string]interface{}{
			"session_id": p.session.SessionId,
			"error":      err.Error(),
		})
	}
	if !sessionCreated {
		return
	}
	if err := s.history.DiscardSession(cleanupCtx, p.session.SessionId); err != nil {
		s.logger.Warn("CHAT_PROXY", "Failed to discard session", map[string]interface{}{
			"session_id": p.session.SessionId,
			"error":      err.Error(),
		})
	}
}

// decodeInlineUpload accepts a data URL or bare base64.
func decodeInlineUpload(data string, maxBytes int64) ([]byte, string, error) {
	payload := strings.TrimSpace(data)
	mime := ""

	if strings.HasPrefix(payload, "data:") {
		header, rest, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", ErrUploadInvalid
		}
		mime = strings.TrimSuffix(header, ";base64")
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = mime[:i]
		}
		payload = rest
	}

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, "", ErrUploadTooLarge
	}

	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if content, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, "", ErrUploadInvalid
		}
	}
	if int64(len(content)) > maxBytes {
		return nil, "", ErrUploadTooLarge
	}
	return content, mime, nil
}

func deriveTopic(question string) string {
	topic := strings.Join(strings.Fields(question), " ")
	if utf8.RuneCountInString(topic) <= 80 {
		return topic
	}
	runes := []rune(topic)
	return string(runes[:80])
}

// Run relays the provider stream to sink until the stream ends, fails, or
// the caller goes away, then persists what was relayed. It always closes the
// provider body.
func (p *ProxyStream) Run(ctx context.Context, sink EventSink) *ProxyOutcome {
	defer p.body.Close()
	p.state = StateStreaming

	var (
		parser = streamparser.NewParser(streamparser.WithMalformedHandler(func(e *streamparser.MalformedEventError) {
			p.svc.logger.Warn("CHAT_PROXY", "Dropped malformed stream event", map[string]interface{}{
				"session_id": p.session.SessionId,
				"payload":    truncateForLog(e.Payload),
				"error":      e.Error(),
			})
		}))
		lines    = streamparser.LineBuffer{MaxLine: p.svc.opts.MaxEventBytes}
		content  strings.Builder
		metadata []entity.MessageEvent
		out      = &ProxyOutcome{SessionId: p.session.SessionId}

		errorRelayed bool
		done         bool
	)

	relay := func(evs []streamparser.Event) {
		for _, ev := range evs {
			if ev.IsTerminal() {
				out.State = StateCompleted
				done = true
				return
			}
			if ctx.Err() != nil {
				out.Disconnected = true
				done = true
				return
			}
			if err := sink.Send(ev); err != nil {
				out.Disconnected = true
				done = true
				return
			}
			out.Relayed++

			switch {
			case ev.IsContent():
				content.WriteString(ev.Text())
			case ev.IsError():
				metadata = append(metadata, entity.MessageEvent{Event: ev.Event, Data: ev.Data})
				out.State = StateFailed
				out.Err = &ProviderEventError{Event: ev.Event, Message: ev.Text()}
				errorRelayed = true
				done = true
				return
			default:
				metadata = append(metadata, entity.MessageEvent{Event: ev.Event, Data: ev.Data})
			}
		}
	}

	buf := make([]byte, p.svc.opts.ReadBufferSize)
	for !done {
		n, readErr := p.body.Read(buf)
		if n > 0 {
			dropped := lines.Dropped()
			complete := lines.Feed(buf[:n])
			if lines.Dropped() > dropped {
				p.svc.logger.Warn("CHAT_PROXY", "Dropped oversized stream line", map[string]interface{}{
					"session_id": p.session.SessionId,
				})
			}
			relay(parser.Parse(complete))
			if done {
				break
			}
		}

		if readErr == io.EOF {
			relay(parser.Parse(lines.Flush()))
			if !done {
				// Connection closed without an end marker.
				out.State = StateCompleted
			}
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				out.Disconnected = true
			} else {
				out.State = StateFailed
				out.Err = fmt.Errorf("%w: %v", ErrStreamInterrupted, readErr)
			}
			break
		}
	}

	if out.Disconnected {
		out.State = StateFailed
		out.Err = ErrCallerDisconnected
	}

	if !out.Disconnected {
		if out.State == StateFailed && !errorRelayed {
			_ = sink.Send(streamparser.NewTextEvent(streamparser.EventError, out.Err.Error()))
		}
		_ = sink.Send(streamparser.NewTextEvent(streamparser.EventEnd, streamparser.DoneSentinel))
	}

	out.Content = content.String()
	p.state = out.State
	p.finish(ctx, out.Content, metadata, out)
	return out
}

// finish persists the exchange with a detached context so a gone caller does
// not lose relayed content.
func (p *ProxyStream) finish(ctx context.Context, content string, metadata []entity.MessageEvent, out *ProxyOutcome) {
	s := p.svc
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.FlushTimeout)
	defer cancel()

	userMsg := &entity.ChatMessage{
		Id:         uuid.New(),
		ChatflowId: p.chatflowId,
		UserId:     p.caller.UserId,
		Role:       entity.ChatRoleUser,
		Content:    p.question,
		FileIds:    p.fileIds,
		CreatedAt:  p.openedAt,
	}
	messages := []*entity.ChatMessage{userMsg}

	finishedAt := time.Now().UTC()
	if content != "" || len(metadata) > 0 {
		// Keep the reply strictly after the question in created_at order.
		at := finishedAt
		if !at.After(p.openedAt) {
			at = p.openedAt.Add(time.Millisecond)
		}
		messages = append(messages, &entity.ChatMessage{
			Id:         uuid.New(),
			ChatflowId: p.chatflowId,
			UserId:     p.caller.UserId,
			Role:       entity.ChatRoleAssistant,
			Content:    content,
			Metadata:   metadata,
			CreatedAt:  at,
		})
	}

	if err := s.history.AppendExchange(flushCtx, p.session.SessionId, finishedAt, messages...); err != nil {
		out.PersistErr = err
		s.logger.Error("CHAT_PROXY", "Failed to persist chat exchange", map[string]interface{}{
			"session_id": p.session.SessionId,
			"error":      err,
		})
		// Unqueued uploads must not be matched by later requests.
		if err := s.dedup.Discard(flushCtx, p.newUploads); err != nil {
			s.logger.Warn("CHAT_PROXY", "Failed to discard uploads", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	for _, upload := range p.newUploads {
		job := dto.FileUploadJob{FileId: upload.FileId, SessionId: p.session.SessionId, UserId: p.caller.UserId}
		if s.jobs == nil {
			break
		}
		if err := s.jobs.PublishFileUploadJob(flushCtx, job); err != nil {
			s.logger.Warn("CHAT_PROXY", "Failed to queue upload processing", map[string]interface{}{
				"file_id": upload.FileId,
				"error":   err.Error(),
			})
		}
	}

	ev := events.New(events.TypeChatCompleted, map[string]interface{}{
		"session_id":     p.session.SessionId.String(),
		"chatflow_id":    p.chatflowId,
		"user_id":        p.caller.UserId,
		"state":          string(out.State),
		"relayed":        out.Relayed,
		"content_length": len(content),
		"disconnected":   out.Disconnected,
	})
	if err := s.events.Publish(flushCtx, ev); err != nil {
		s.logger.Warn("CHAT_PROXY", "Failed to publish chat event", map[string]interface{}{"error": err.Error()})
	}

	s.logger.Info("CHAT_PROXY", "Chat stream finished", map[string]interface{}{
		"session_id":   p.session.SessionId,
		"chatflow_id":  p.chatflowId,
		"state":        out.State,
		"relayed":      out.Relayed,
		"disconnected": out.Disconnected,
	})
}

func truncateForLog(s string) string {
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}
