package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/freightdesk/internal/http/handlers/shared"
	"github.com/freightdesk/internal/http/response"
	"github.com/freightdesk/internal/repository"
	"github.com/freightdesk/internal/service"

	"github.com/gin-gonic/gin"
)

// listOrders 订单列表（状态与路线取自第一个运输段）
func (h *Handler) listOrders(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	clientID, ok := handlershared.QueryUint(c, "client_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}
	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		ClientID: clientID,
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(page, pageSize, total))
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := handlershared.QueryUint(c, "id")
	if !ok || id == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}
	order, err := h.OrderService.GetOrder(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// queryOrderID 读取必填的 order_id
func queryOrderID(c *gin.Context) (uint, bool) {
	orderID, ok := handlershared.QueryUint(c, "order_id")
	if !ok || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return 0, false
	}
	return orderID, true
}

func (h *Handler) listOrderStages(c *gin.Context) {
	orderID, ok := queryOrderID(c)
	if !ok {
		return
	}
	stages, err := h.StageService.CollectOrderStages(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stages)
}

func (h *Handler) listLegacyStages(c *gin.Context) {
	orderID, ok := queryOrderID(c)
	if !ok {
		return
	}
	stages, err := h.StageService.ListLegacyStages(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stages)
}

func (h *Handler) listCustomsPoints(c *gin.Context) {
	orderID, ok := queryOrderID(c)
	if !ok {
		return
	}
	points, err := h.StageService.ListCustomsPoints(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, points)
}

// listActivityLog 指定 order_id 时返回订单日志，否则返回最近日志
func (h *Handler) listActivityLog(c *gin.Context) {
	orderID, ok := handlershared.QueryUint(c, "order_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}
	if orderID > 0 {
		logs, err := h.ActivityLogService.ListForOrder(orderID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		response.Success(c, logs)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	logs, err := h.ActivityLogService.ListRecent(limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, logs)
}

func (h *Handler) getLastOrderNumber(c *gin.Context) {
	result, err := h.OrderService.GetLastOrderNumber(c.Query("direction"), c.Query("date"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) createOrder(c *gin.Context, req *portalRequest) {
	var payload orderPayload
	if !decodeOrFail(c, firstSection(req.Data, req.Order), &payload) {
		return
	}
	order, err := h.OrderService.CreateOrder(payload.toCreateInput(req.actor(c)))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"order_id": order.ID, "order": order})
}

func (h *Handler) createMultiStageOrder(c *gin.Context, req *portalRequest) {
	var payload multiStageOrderPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	input := payload.Order.toCreateInput(req.actor(c))
	multi := service.CreateMultiStageOrderInput{CreateOrderInput: input}
	for _, stage := range payload.Stages {
		multi.Stages = append(multi.Stages, stage.toInput())
	}
	for _, point := range payload.CustomsPoints {
		multi.CustomsPoints = append(multi.CustomsPoints, point.toInput())
	}
	order, err := h.OrderService.CreateMultiStageOrder(multi)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"order_id": order.ID, "order": order})
}

// updateOrder 兼容 {order_id, order} 与 PUT {resource, id, data} 两种写法
func (h *Handler) updateOrder(c *gin.Context, req *portalRequest) {
	id := req.OrderID.Uint()
	if id == 0 {
		id = req.ID.Uint()
	}
	if !requireID(c, id) {
		return
	}
	var payload orderPayload
	if !decodeOrFail(c, firstSection(req.Order, req.Data), &payload) {
		return
	}
	order, err := h.OrderService.UpdateOrder(id, payload.toUpdateInput(req.actor(c)))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// updateLegacyStage 勾选或取消旧版流程步骤
func (h *Handler) updateLegacyStage(c *gin.Context, req *portalRequest) {
	stageID := stageIDOf(req)
	if !requireID(c, stageID) {
		return
	}
	completed := req.IsCompleted != nil && *req.IsCompleted
	actor := strings.TrimSpace(req.CompletedBy)
	if actor == "" {
		actor = req.actor(c)
	}
	stage, err := h.StageService.CompleteStage(stageID, completed, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stage)
}

func (h *Handler) startStage(c *gin.Context, req *portalRequest) {
	stageID := stageIDOf(req)
	if !requireID(c, stageID) {
		return
	}
	stage, err := h.StageService.StartTransportStage(stageID, req.actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stage)
}

func (h *Handler) completeStage(c *gin.Context, req *portalRequest) {
	stageID := stageIDOf(req)
	if !requireID(c, stageID) {
		return
	}
	actor := req.actor(c)
	if completedBy := strings.TrimSpace(req.CompletedBy); completedBy != "" {
		actor = completedBy
	}
	stage, err := h.StageService.CompleteTransportStage(stageID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stage)
}

func (h *Handler) addOrderStage(c *gin.Context, req *portalRequest) {
	orderID := req.OrderID.Uint()
	if !requireID(c, orderID) {
		return
	}
	var payload stagePayload
	if !decodeOrFail(c, firstSection(req.Stage, req.Data), &payload) {
		return
	}
	stage, err := h.StageService.AddOrderStage(orderID, payload.toInput(), req.actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stage)
}

func (h *Handler) deleteOrderStage(c *gin.Context, req *portalRequest) {
	stageID := stageIDOf(req)
	if !requireID(c, stageID) {
		return
	}
	if err := h.StageService.DeleteOrderStage(stageID, req.actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true, "stage_id": stageID})
}

// addCustomsPoint 未指定运输段时挂到订单最后一个运输段
func (h *Handler) addCustomsPoint(c *gin.Context, req *portalRequest) {
	orderID := req.OrderID.Uint()
	if !requireID(c, orderID) {
		return
	}
	var payload customsPayload
	if !decodeOrFail(c, firstSection(req.Customs, req.Data), &payload) {
		return
	}
	stageID := handlershared.OptionalID(payload.StageID)
	if stageID == nil {
		stageID = handlershared.OptionalID(req.StageID)
	}
	point, err := h.StageService.AddCustomsPoint(orderID, stageID, payload.toInput(), req.actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, point)
}

func (h *Handler) addOrderNote(c *gin.Context, req *portalRequest) {
	orderID := req.OrderID.Uint()
	if !requireID(c, orderID) {
		return
	}
	order, err := h.OrderService.AddOrderNote(orderID, req.Note, req.actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

func (h *Handler) deleteOrder(_ *gin.Context, id uint) error {
	return h.OrderService.DeleteOrder(id)
}

func stageIDOf(req *portalRequest) uint {
	if id := handlershared.OptionalID(req.StageID); id != nil {
		return *id
	}
	return req.ID.Uint()
}
