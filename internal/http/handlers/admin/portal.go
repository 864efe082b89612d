package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	handlershared "github.com/freightdesk/internal/http/handlers/shared"
	"github.com/freightdesk/internal/http/response"

	"github.com/gin-gonic/gin"
)

// portalRequest 门户写请求体，各 action 只读取自己需要的字段
type portalRequest struct {
	Action      string                  `json:"action"`
	Resource    string                  `json:"resource"`
	ID          handlershared.FlexUint  `json:"id"`
	OrderID     handlershared.FlexUint  `json:"order_id"`
	StageID     *handlershared.FlexUint `json:"stage_id"`
	RoleID      handlershared.FlexUint  `json:"role_id"`
	RoleName    string                  `json:"role_name"`
	IsCompleted *bool                   `json:"is_completed"`
	CompletedBy string                  `json:"completed_by"`
	UserRole    string                  `json:"user_role"`
	Note        string                  `json:"note"`
	ChatID      string                  `json:"chat_id"`
	EventType   string                  `json:"event_type"`
	Data        json.RawMessage         `json:"data"`
	Order       json.RawMessage         `json:"order"`
	Stage       json.RawMessage         `json:"stage"`
	Customs     json.RawMessage         `json:"customs"`
	OrderData   json.RawMessage         `json:"order_data"`
}

func (r *portalRequest) actor(c *gin.Context) string {
	return handlershared.ResolveActor(c, r.UserRole)
}

// decodeSection 解析请求体中的子对象，缺省或 null 时保持零值
func decodeSection(raw json.RawMessage, dest interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, dest)
}

// firstSection 返回第一个非空子对象
func firstSection(sections ...json.RawMessage) json.RawMessage {
	for _, raw := range sections {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			return trimmed
		}
	}
	return nil
}

type portalReadFunc func(*Handler, *gin.Context)

type portalWriteFunc func(*Handler, *gin.Context, *portalRequest)

type portalDeleteFunc func(*Handler, *gin.Context, uint) error

var portalReads = map[string]portalReadFunc{
	"orders":             (*Handler).listOrders,
	"order":              (*Handler).getOrder,
	"order_stages":       (*Handler).listOrderStages,
	"legacy_stages":      (*Handler).listLegacyStages,
	"customs_points":     (*Handler).listCustomsPoints,
	"activity_log":       (*Handler).listActivityLog,
	"stats":              (*Handler).getStats,
	"drivers":            (*Handler).listDrivers,
	"vehicles":           (*Handler).listVehicles,
	"clients":            (*Handler).listClients,
	"customers":          (*Handler).listCustomers,
	"customer_addresses": (*Handler).listCustomerAddresses,
	"users":              (*Handler).listUsers,
	"roles":              (*Handler).listRoles,
	"telegram_settings":  (*Handler).getTelegramSettings,
	"last_order_number":  (*Handler).getLastOrderNumber,
	"documents":          (*Handler).listDocuments,
	"notifications":      (*Handler).listNotifications,
}

var portalActions = map[string]portalWriteFunc{
	"create_order":             (*Handler).createOrder,
	"create_multi_stage_order": (*Handler).createMultiStageOrder,
	"update_order":             (*Handler).updateOrder,
	"update_stage":             (*Handler).updateLegacyStage,
	"start_stage":              (*Handler).startStage,
	"complete_stage":           (*Handler).completeStage,
	"add_order_stage":          (*Handler).addOrderStage,
	"delete_order_stage":       (*Handler).deleteOrderStage,
	"add_customs_point":        (*Handler).addCustomsPoint,
	"add_order_note":           (*Handler).addOrderNote,
	"create_driver":            (*Handler).createDriver,
	"create_vehicle":           (*Handler).createVehicle,
	"create_client":            (*Handler).createClient,
	"create_customer":          (*Handler).createCustomer,
	"create_customer_address":  (*Handler).createCustomerAddress,
	"create_user":              (*Handler).createUser,
	"create_role":              (*Handler).createRole,
	"update_role_permissions":  (*Handler).updateRolePermissions,
	"save_telegram_settings":   (*Handler).saveTelegramSettings,
	"test_telegram_bot":        (*Handler).testTelegramBot,
	"send_notification":        (*Handler).sendNotification,
	"create_document":          (*Handler).createDocument,
}

var portalUpdates = map[string]portalWriteFunc{
	"order":            (*Handler).updateOrder,
	"driver":           (*Handler).updateDriver,
	"vehicle":          (*Handler).updateVehicle,
	"client":           (*Handler).updateClient,
	"customer":         (*Handler).updateCustomer,
	"customer_address": (*Handler).updateCustomerAddress,
	"user":             (*Handler).updateUser,
}

var portalDeletes = map[string]portalDeleteFunc{
	"order":            (*Handler).deleteOrder,
	"driver":           (*Handler).deleteDriver,
	"vehicle":          (*Handler).deleteVehicle,
	"client":           (*Handler).deleteClient,
	"customer":         (*Handler).deleteCustomer,
	"customer_address": (*Handler).deleteCustomerAddress,
	"user":             (*Handler).deleteUser,
	"role":             (*Handler).deleteRole,
	"document":         (*Handler).deleteDocument,
}

// PortalGet 按 resource 查询
func (h *Handler) PortalGet(c *gin.Context) {
	resource := strings.TrimSpace(c.DefaultQuery("resource", "orders"))
	read, ok := portalReads[resource]
	if !ok {
		respondError(c, response.CodeBadRequest, "error.resource_unknown", nil)
		return
	}
	read(h, c)
}

// PortalPost 按 action 执行写操作
func (h *Handler) PortalPost(c *gin.Context) {
	req, ok := bindPortalRequest(c)
	if !ok {
		return
	}
	action, ok := portalActions[strings.TrimSpace(req.Action)]
	if !ok {
		respondError(c, response.CodeBadRequest, "error.action_unknown", nil)
		return
	}
	action(h, c, req)
}

// PortalPut 按 resource 更新记录
func (h *Handler) PortalPut(c *gin.Context) {
	req, ok := bindPortalRequest(c)
	if !ok {
		return
	}
	update, ok := portalUpdates[strings.TrimSpace(req.Resource)]
	if !ok {
		respondError(c, response.CodeBadRequest, "error.resource_unknown", nil)
		return
	}
	if req.ID == 0 && strings.TrimSpace(req.Resource) != "order" {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}
	update(h, c, req)
}

// PortalDelete 按 resource 删除记录，参数取自查询串或请求体
func (h *Handler) PortalDelete(c *gin.Context) {
	resource := strings.TrimSpace(c.Query("resource"))
	id, ok := handlershared.QueryUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}
	if resource == "" || id == 0 {
		if c.Request.ContentLength != 0 {
			var req portalRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, response.CodeBadRequest, "error.bad_request", nil)
				return
			}
			if resource == "" {
				resource = strings.TrimSpace(req.Resource)
			}
			if id == 0 {
				id = req.ID.Uint()
			}
		}
	}
	remove, ok := portalDeletes[resource]
	if !ok {
		respondError(c, response.CodeBadRequest, "error.resource_unknown", nil)
		return
	}
	if id == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}
	if err := remove(h, c, id); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true, "id": id})
}

func bindPortalRequest(c *gin.Context) (*portalRequest, bool) {
	var req portalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestLog(c).Debugw("portal_request_bind_failed", "error", err)
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return nil, false
	}
	return &req, true
}

// requireID 校验必填 ID
func requireID(c *gin.Context, id uint) bool {
	if id == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return false
	}
	return true
}

// decodeOrFail 解析子对象，失败时返回 400
func decodeOrFail(c *gin.Context, raw json.RawMessage, dest interface{}) bool {
	if err := decodeSection(raw, dest); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			requestLog(c).Debugw("portal_section_syntax_invalid", "offset", syntaxErr.Offset)
		}
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return false
	}
	return true
}
