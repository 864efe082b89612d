package admin

import (
	"strings"

	"github.com/freightdesk/internal/constants"
	handlershared "github.com/freightdesk/internal/http/handlers/shared"
	"github.com/freightdesk/internal/http/response"
	"github.com/freightdesk/internal/repository"
	"github.com/freightdesk/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.DashboardService.GetStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stats)
}

// getTelegramSettings token 以掩码形式返回
func (h *Handler) getTelegramSettings(c *gin.Context) {
	setting, err := h.SettingService.GetTelegramBotSettingView()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, setting)
}

func (h *Handler) saveTelegramSettings(c *gin.Context, req *portalRequest) {
	var input service.TelegramBotSettingInput
	if !decodeOrFail(c, req.Data, &input) {
		return
	}
	setting, err := h.SettingService.SaveTelegramBotSetting(input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, setting)
}

func (h *Handler) testTelegramBot(c *gin.Context, req *portalRequest) {
	var payload struct {
		ChatID string `json:"chat_id"`
	}
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	chatID := strings.TrimSpace(payload.ChatID)
	if chatID == "" {
		chatID = strings.TrimSpace(req.ChatID)
	}
	if err := h.NotificationService.SendTest(c.Request.Context(), chatID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}

// sendNotification 手动触发通知；未提供 order_data 时按 order_id 现取订单数据
func (h *Handler) sendNotification(c *gin.Context, req *portalRequest) {
	eventType := strings.TrimSpace(req.EventType)
	var payload service.NotificationPayload
	if !decodeOrFail(c, firstSection(req.OrderData, req.Data), &payload) {
		return
	}
	if orderID := req.OrderID.Uint(); orderID > 0 && strings.TrimSpace(payload.OrderNumber) == "" {
		built, err := h.NotificationService.BuildOrderPayload(nil, orderID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		built.StageName = payload.StageName
		built.CompletedBy = payload.CompletedBy
		payload = built
	}
	if strings.TrimSpace(payload.CompletedBy) == "" && eventType == constants.NotificationEventStageCompleted {
		payload.CompletedBy = req.actor(c)
	}
	result, err := h.NotificationService.Dispatch(c.Request.Context(), eventType, payload)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) listNotifications(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	orderID, ok := handlershared.QueryUint(c, "order_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}
	items, total, err := h.NotificationService.ListSent(repository.NotificationListFilter{
		Page:      page,
		PageSize:  pageSize,
		OrderID:   orderID,
		EventType: strings.TrimSpace(c.Query("event_type")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

func (h *Handler) listDocuments(c *gin.Context) {
	orderID, ok := queryOrderID(c)
	if !ok {
		return
	}
	documents, err := h.DocumentService.ListByOrder(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, documents)
}

func (h *Handler) createDocument(c *gin.Context, req *portalRequest) {
	var payload documentPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	orderID := payload.OrderID.Uint()
	if orderID == 0 {
		orderID = req.OrderID.Uint()
	}
	document, err := h.DocumentService.Create(service.DocumentInput{
		OrderID:   orderID,
		DocType:   payload.DocType,
		DocNumber: payload.DocNumber,
		FileURL:   payload.FileURL,
		Actor:     req.actor(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, document)
}

func (h *Handler) deleteDocument(_ *gin.Context, id uint) error {
	return h.DocumentService.Delete(id)
}
