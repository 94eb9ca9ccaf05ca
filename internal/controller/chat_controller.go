package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"chatproxy-be/internal/dto"
	"chatproxy-be/internal/pkg/serverutils"
	"chatproxy-be/internal/service"
	"chatproxy-be/pkg/streamparser"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Stream(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	ListFiles(ctx *fiber.Ctx) error
	DeactivateSession(ctx *fiber.Ctx) error
}

type chatController struct {
	proxy     service.IChatProxyService
	history   service.IChatHistoryService
	jwtSecret string
}

func NewChatController(proxy service.IChatProxyService, history service.IChatHistoryService, jwtSecret string) IChatController {
	return &chatController{
		proxy:     proxy,
		history:   history,
		jwtSecret: jwtSecret,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("/stream", c.Stream)
	h.Get("/sessions", c.ListSessions)
	h.Get("/sessions/:id/messages", c.GetMessages)
	h.Get("/sessions/:id/files", c.ListFiles)
	h.Delete("/sessions/:id", c.DeactivateSession)
}

// Stream proxies one prediction as server-sent events. Errors before the
// provider stream opens are plain HTTP errors; after that every outcome is
// reported in-band.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	var req dto.ChatStreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// fasthttp runs the body writer after the handler returns, so the stream
	// gets its own context carrying the request span.
	streamCtx, cancel := context.WithCancel(trace.ContextWithSpan(context.Background(), trace.SpanFromContext(ctx.UserContext())))

	stream, err := c.proxy.Open(streamCtx, callerFrom(ctx), &req)
	if err != nil {
		cancel()
		return toHTTPError(err)
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")
	ctx.Set("X-Session-Id", stream.SessionId().String())

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		stream.Run(streamCtx, &sseSink{w: w})
	})
	return nil
}

// sseSink writes one "data:" frame per event and flushes it. A failed write
// or flush means the client is gone.
type sseSink struct {
	w *bufio.Writer
}

func (s *sseSink) Send(ev streamparser.Event) error {
	if err := writeSSE(s.w, ev); err != nil {
		return err
	}
	return s.w.Flush()
}

func writeSSE(w io.Writer, ev streamparser.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	_, err = w.Write(frame)
	return err
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	var query dto.SessionListQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.history.ListSessions(ctx.UserContext(), callerFrom(ctx).UserId, query)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *chatController) GetMessages(ctx *fiber.Ctx) error {
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.history.GetMessages(ctx.UserContext(), callerFrom(ctx).UserId, sessionId)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get messages", res))
}

func (c *chatController) ListFiles(ctx *fiber.Ctx) error {
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.history.ListSessionFiles(ctx.UserContext(), callerFrom(ctx).UserId, sessionId)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session files", res))
}

func (c *chatController) DeactivateSession(ctx *fiber.Ctx) error {
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	if err := c.history.DeactivateSession(ctx.UserContext(), callerFrom(ctx).UserId, sessionId); err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session deactivated", nil))
}
