package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	_ "github.com/aniladanir/whatsapp-messenger-service/docs"
	"github.com/aniladanir/whatsapp-messenger-service/internal/domain"
	"github.com/aniladanir/whatsapp-messenger-service/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	defaultLogsLimit = 10
	maxLogsLimit     = 100
)

type Options struct {
	AppName     string
	Environment string
	MessageBody string
	Gatherer    prometheus.Gatherer
}

type Handler struct {
	msgSender service.MessageSender
	opts      Options
	server    *http.Server
}

// @title WhatsApp Messaging API
// @version 1.0
// @description Sends WhatsApp messages through the WhatsApp Business API and keeps a log of every attempt
// @host localhost:8000
// @BasePath /
func NewHttpHandler(addr string, svc service.MessageSender, opts Options) *Handler {
	h := &Handler{
		msgSender: svc,
		opts:      opts,
	}

	// create router
	router := gin.New()
	router.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Message: "Unexpected error occurred"})
	}))
	router.Use(cors.Default())

	// register routes
	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1/whatsapp")
	v1.GET("/send_message", h.sendMessageQuery)
	v1.POST("/send_message", h.sendMessageBody)
	v1.GET("/logs", h.getLogs)
	v1.GET("/messages/:message_id", h.getSentMessage)

	// create http server
	h.server = &http.Server{
		Addr:    addr,
		Handler: router.Handler(),
	}

	return h
}

func (h *Handler) Run() error {
	return h.server.ListenAndServe()
}

func (h *Handler) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

type MessageRequest struct {
	PhoneNumber string `json:"phone_number" example:"+14155552671"`
}

type MessageResponse struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	MessageID *string        `json:"message_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Root godoc
// @Summary Service info
// @Tags Root
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":               fmt.Sprintf("%s is running in %s mode", h.opts.AppName, h.opts.Environment),
		"documentation":         "/swagger/index.html",
		"send_message_endpoint": "/api/v1/whatsapp/send_message",
		"logs_endpoint":         "/api/v1/whatsapp/logs",
	})
}

// Health godoc
// @Summary Liveness and database reachability
// @Tags Root
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 503 {object} map[string]bool
// @Router /health [get]
func (h *Handler) health(c *gin.Context) {
	if err := h.msgSender.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SendMessageQuery godoc
// @Summary Send the test message
// @Description Sends the configured message to phone_number and logs the attempt
// @Tags WhatsApp
// @Produce json
// @Param phone_number query string true "Recipient's phone number with country code"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/whatsapp/send_message [get]
func (h *Handler) sendMessageQuery(c *gin.Context) {
	phoneNumber, ok := c.GetQuery("phone_number")
	if !ok {
		writeError(c, http.StatusBadRequest, "phone_number is required")
		return
	}
	h.sendMessage(c, phoneNumber)
}

// SendMessageBody godoc
// @Summary Send the test message
// @Description Sends the configured message to phone_number and logs the attempt
// @Tags WhatsApp
// @Accept json
// @Produce json
// @Param request body MessageRequest true "Recipient"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/whatsapp/send_message [post]
func (h *Handler) sendMessageBody(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "request body must be a json object with phone_number")
		return
	}
	if req.PhoneNumber == "" {
		writeError(c, http.StatusBadRequest, "phone_number is required")
		return
	}
	h.sendMessage(c, req.PhoneNumber)
}

func (h *Handler) sendMessage(c *gin.Context, phoneNumber string) {
	outcome, err := h.msgSender.SendMessage(c.Request.Context(), phoneNumber, h.opts.MessageBody)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	resp := MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Message sent successfully to %s", outcome.PhoneNumber),
		Details: outcome.Response,
	}
	if outcome.MessageID != "" {
		resp.MessageID = &outcome.MessageID
	}
	c.JSON(http.StatusOK, resp)
}

// GetLogs godoc
// @Summary Recent message logs
// @Description Returns message logs, most recent first
// @Tags WhatsApp
// @Produce json
// @Param limit query int false "Maximum number of logs (1-100)" default(10)
// @Param skip query int false "Number of logs to skip" default(0)
// @Success 200 {array} domain.MessageLog
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/whatsapp/logs [get]
func (h *Handler) getLogs(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultLogsLimit)
	if err != nil || limit < 1 || limit > maxLogsLimit {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("limit must be an integer between 1 and %d", maxLogsLimit))
		return
	}
	skip, err := queryInt(c, "skip", 0)
	if err != nil || skip < 0 {
		writeError(c, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}

	logs, err := h.msgSender.GetLogs(c.Request.Context(), limit, skip)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetSentMessage godoc
// @Summary Cached receipt of a delivered message
// @Tags WhatsApp
// @Produce json
// @Param message_id path string true "Provider message id"
// @Success 200 {object} domain.SentReceipt
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/whatsapp/messages/{message_id} [get]
func (h *Handler) getSentMessage(c *gin.Context) {
	receipt, err := h.msgSender.GetSentMessage(c.Request.Context(), c.Param("message_id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPhoneNumber):
		writeError(c, http.StatusBadRequest, domain.Detail(err, "Invalid phone number format"))
	case errors.Is(err, domain.ErrNotFound):
		writeError(c, http.StatusNotFound, "Message not found")
	case errors.Is(err, domain.ErrRemoteDelivery):
		writeError(c, http.StatusBadGateway, domain.Detail(err, "WhatsApp API error occurred"))
	case errors.Is(err, domain.ErrConfiguration):
		writeError(c, http.StatusInternalServerError, "API configuration error")
	case errors.Is(err, domain.ErrStorage):
		writeError(c, http.StatusInternalServerError, "Database error occurred")
	default:
		writeError(c, http.StatusInternalServerError, "Unexpected error occurred")
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Success: false, Message: message})
}
