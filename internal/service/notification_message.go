package service

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/models"
)

const (
	placeholderNA         = "N/A"
	placeholderNotSetNeut = "Не указано"
	placeholderNotSet     = "Не указан"
)

// telegramTestMessage 测试消息正文
const telegramTestMessage = "✅ <b>Тестовое сообщение</b>\n\nTelegram-бот настроен и может отправлять уведомления."

// NotificationPayload 通知模板变量
type NotificationPayload struct {
	OrderID      *uint  `json:"order_id,omitempty"`
	OrderNumber  string `json:"order_number,omitempty"`
	OrderDate    string `json:"order_date,omitempty"`
	Customers    string `json:"customers,omitempty"`
	Carrier      string `json:"carrier,omitempty"`
	Route        string `json:"route,omitempty"`
	Invoice      string `json:"invoice,omitempty"`
	Vehicle      string `json:"vehicle,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
	Trailer      string `json:"trailer,omitempty"`
	Driver       string `json:"driver,omitempty"`
	FromLocation string `json:"from_location,omitempty"`
	ToLocation   string `json:"to_location,omitempty"`
	StageName    string `json:"stage_name,omitempty"`
	CompletedBy  string `json:"completed_by,omitempty"`
}

// ToJSON 转为发件箱存储格式
func (p NotificationPayload) ToJSON() (models.JSON, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	result := models.JSON{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// NotificationPayloadFromJSON 从发件箱记录还原
func NotificationPayloadFromJSON(raw models.JSON) (NotificationPayload, error) {
	var payload NotificationPayload
	if len(raw) == 0 {
		return payload, nil
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, fmt.Errorf("decode notification payload: %w", err)
	}
	return payload, nil
}

// IsNotificationEventSupported 判断事件类型是否支持
func IsNotificationEventSupported(eventType string) bool {
	for _, event := range constants.NotificationEvents {
		if event == eventType {
			return true
		}
	}
	return false
}

// RenderNotificationMessage 按事件模板生成 HTML 消息
func RenderNotificationMessage(eventType string, p NotificationPayload) (string, error) {
	switch eventType {
	case constants.NotificationEventOrderCreated:
		return fmt.Sprintf("🆕 <b>Создан новый заказ</b>\n\n"+
			"📋 Номер заказа: <b>%s</b>\n"+
			"📅 Дата: %s\n"+
			"👤 Заказчики: %s\n"+
			"🚛 Перевозчик: %s\n"+
			"📍 Маршрут: %s",
			templateField(p.OrderNumber, placeholderNA),
			templateField(p.OrderDate, placeholderNA),
			templateField(p.Customers, placeholderNotSetNeut),
			templateField(p.Carrier, placeholderNotSet),
			templateField(p.Route, placeholderNotSet),
		), nil
	case constants.NotificationEventOrderLoaded:
		return fmt.Sprintf("📦 <b>Груз отгружен</b>\n\n"+
			"📋 Заказ: <b>%s</b>\n"+
			"📄 Инвойс: %s\n"+
			"🚗 Автомобиль: %s\n"+
			"🚚 Прицеп: %s\n"+
			"👨‍✈️ Водитель: %s\n"+
			"📍 Откуда: %s",
			templateField(p.OrderNumber, placeholderNA),
			templateField(p.Invoice, placeholderNotSet),
			templateField(p.Vehicle, placeholderNotSet),
			templateField(p.Trailer, placeholderNotSet),
			templateField(p.Driver, placeholderNotSet),
			templateField(p.FromLocation, placeholderNA),
		), nil
	case constants.NotificationEventOrderInTransit:
		return fmt.Sprintf("🚛 <b>Груз в пути</b>\n\n"+
			"📋 Заказ: <b>%s</b>\n"+
			"📄 Инвойс: %s\n"+
			"🚗 Автомобиль: %s (%s)\n"+
			"🚚 Прицеп: %s\n"+
			"📍 Маршрут: %s → %s\n"+
			"👨‍✈️ Водитель: %s",
			templateField(p.OrderNumber, placeholderNA),
			templateField(p.Invoice, placeholderNotSet),
			templateField(p.Vehicle, placeholderNotSet),
			templateField(p.LicensePlate, placeholderNA),
			templateField(p.Trailer, placeholderNotSet),
			templateField(p.FromLocation, placeholderNA),
			templateField(p.ToLocation, placeholderNA),
			templateField(p.Driver, placeholderNotSet),
		), nil
	case constants.NotificationEventOrderDelivered:
		return fmt.Sprintf("✅ <b>Груз доставлен</b>\n\n"+
			"📋 Заказ: <b>%s</b>\n"+
			"📄 Инвойс: %s\n"+
			"📍 Место доставки: %s\n"+
			"🚗 Автомобиль: %s\n"+
			"👨‍✈️ Водитель: %s",
			templateField(p.OrderNumber, placeholderNA),
			templateField(p.Invoice, placeholderNotSet),
			templateField(p.ToLocation, placeholderNA),
			templateField(p.Vehicle, placeholderNotSet),
			templateField(p.Driver, placeholderNotSet),
		), nil
	case constants.NotificationEventStageCompleted:
		return fmt.Sprintf("✔️ <b>Этап выполнен</b>\n\n"+
			"📋 Заказ: <b>%s</b>\n"+
			"📌 Этап: %s\n"+
			"👤 Выполнил: %s",
			templateField(p.OrderNumber, placeholderNA),
			templateField(p.StageName, placeholderNA),
			templateField(p.CompletedBy, placeholderNA),
		), nil
	default:
		return "", ErrNotificationEventInvalid
	}
}

// templateField 空值替换为占位符，其余做 HTML 转义
func templateField(value, placeholder string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return placeholder
	}
	return html.EscapeString(trimmed)
}
