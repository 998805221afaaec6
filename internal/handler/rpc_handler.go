package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weissv/olymp-pay/internal/service"
	"github.com/weissv/olymp-pay/pkg/utils"
)

const (
	WebhookPath     = "/payme/webhook"
	maxBodyBytes    = 1 << 20
	requestIDHeader = "X-Request-ID"
)

// Authenticator checks the Authorization header of a webhook call.
type Authenticator interface {
	Verify(ctx context.Context, authorization string) bool
}

type RPCHandler struct {
	auth    Authenticator
	methods map[Method]methodFunc
	logger  *zap.Logger
}

func NewRPCHandler(paymentService service.PaymentService, auth Authenticator, logger *zap.Logger) *RPCHandler {
	return &RPCHandler{
		auth:    auth,
		methods: newMethodTable(paymentService, validator.New()),
		logger:  logger,
	}
}

func (h *RPCHandler) RegisterRoutes(router gin.IRoutes) {
	router.POST(WebhookPath, h.handleRequest)
}

func (h *RPCHandler) handleRequest(c *gin.Context) {
	start := time.Now()
	requestID := uuid.NewString()
	c.Header(requestIDHeader, requestID)
	log := h.logger.With(zap.String("request_id", requestID))

	body, readErr := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))

	if !h.auth.Verify(c.Request.Context(), c.GetHeader("Authorization")) {
		log.Warn("rpc request rejected: invalid authorization", zap.String("remote_addr", c.ClientIP()))
		h.sendError(c, utils.PeekID(body), utils.ErrInsufficientPrivilege)
		return
	}

	if readErr != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(readErr, &tooLarge) {
			log.Warn("rpc request body too large", zap.Int64("limit", tooLarge.Limit))
		} else {
			log.Warn("failed to read rpc request body", zap.Error(readErr))
		}
		h.sendError(c, nil, utils.ErrParse)
		return
	}

	var req utils.RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Info("rpc request is not valid json", zap.Error(err))
		h.sendError(c, utils.PeekID(body), utils.ErrParse)
		return
	}

	method := Method(req.Method)
	call, ok := h.methods[method]
	if !ok {
		log.Info("unknown rpc method", zap.String("method", req.Method))
		h.sendError(c, req.ID, utils.ErrMethodNotFound)
		return
	}

	result, err := call(c.Request.Context(), req.Params)
	log = log.With(zap.String("method", string(method)), zap.Duration("duration", time.Since(start)))
	if err != nil {
		rpcErr, ok := utils.AsRPCError(err)
		if !ok {
			log.Error("rpc method failed", zap.Error(err))
			rpcErr = utils.ErrInternalServer
		} else {
			log.Info("rpc method rejected", zap.Int("code", rpcErr.Code))
		}
		h.sendError(c, req.ID, rpcErr)
		return
	}

	log.Info("rpc method completed")
	c.JSON(http.StatusOK, utils.NewRPCSuccessResponse(req.ID, result))
}

func (h *RPCHandler) sendError(c *gin.Context, id json.RawMessage, rpcErr utils.RPCError) {
	c.JSON(http.StatusOK, utils.NewRPCErrorResponse(id, rpcErr))
}
