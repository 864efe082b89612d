package admin

import (
	"bytes"
	"encoding/json"
	"strings"

	handlershared "github.com/freightdesk/internal/http/handlers/shared"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/service"
)

// attachmentList 附件列表，兼容字符串数组与 {name,url} 对象数组
type attachmentList []string

// UnmarshalJSON 解析附件
func (a *attachmentList) UnmarshalJSON(b []byte) error {
	*a = nil
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				result = append(result, text)
			}
			continue
		}
		var file struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		}
		if err := json.Unmarshal(item, &file); err != nil {
			return err
		}
		if url := strings.TrimSpace(file.URL); url != "" {
			result = append(result, url)
		}
	}
	*a = result
	return nil
}

type customerItemPayload struct {
	CustomerID handlershared.FlexUint `json:"customer_id"`
	Note       string                 `json:"note"`
}

func toCustomerItems(items []customerItemPayload) []service.OrderCustomerItem {
	result := make([]service.OrderCustomerItem, 0, len(items))
	for _, item := range items {
		result = append(result, service.OrderCustomerItem{
			CustomerID: item.CustomerID.Uint(),
			Note:       strings.TrimSpace(item.Note),
		})
	}
	return result
}

// orderPayload 订单字段，未传字段在更新时保持不变；client_id、order_date 传 null 表示清空
type orderPayload struct {
	OrderNumber   *string                  `json:"order_number"`
	OrderDate     handlershared.FlexDate   `json:"order_date"`
	Status        *string                  `json:"status"`
	ClientID      handlershared.NullableID `json:"client_id"`
	CargoType     *string                 `json:"cargo_type"`
	CargoWeight   *models.Decimal         `json:"cargo_weight"`
	Invoice       *string                 `json:"invoice"`
	TrackNumber   *string                 `json:"track_number"`
	Notes         *string                 `json:"notes"`
	Attachments   *attachmentList         `json:"attachments"`
	CustomerItems *[]customerItemPayload  `json:"customer_items"`
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func (p orderPayload) toCreateInput(actor string) service.CreateOrderInput {
	input := service.CreateOrderInput{
		OrderNumber: deref(p.OrderNumber),
		OrderDate:   p.OrderDate.Ptr(),
		Status:      deref(p.Status),
		ClientID:    p.ClientID.Optional(),
		CargoType:   deref(p.CargoType),
		Invoice:     deref(p.Invoice),
		TrackNumber: deref(p.TrackNumber),
		Notes:       deref(p.Notes),
		Actor:       actor,
	}
	if p.CargoWeight != nil {
		input.CargoWeight = *p.CargoWeight
	}
	if p.Attachments != nil {
		input.Attachments = []string(*p.Attachments)
	}
	if p.CustomerItems != nil {
		input.CustomerItems = toCustomerItems(*p.CustomerItems)
	}
	return input
}

func (p orderPayload) toUpdateInput(actor string) service.UpdateOrderInput {
	input := service.UpdateOrderInput{
		OrderNumber:    p.OrderNumber,
		OrderDate:      p.OrderDate.Ptr(),
		ClearOrderDate: p.OrderDate.Cleared(),
		Status:         p.Status,
		ClientID:       p.ClientID.Patch(),
		CargoType:      p.CargoType,
		CargoWeight:    p.CargoWeight,
		Invoice:        p.Invoice,
		TrackNumber:    p.TrackNumber,
		Notes:          p.Notes,
		Actor:          actor,
	}
	if p.Attachments != nil {
		attachments := []string(*p.Attachments)
		input.Attachments = &attachments
	}
	if p.CustomerItems != nil {
		items := toCustomerItems(*p.CustomerItems)
		input.CustomerItems = &items
	}
	return input
}

type stagePayload struct {
	StageNumber      int                     `json:"stage_number"`
	VehicleID        *handlershared.FlexUint `json:"vehicle_id"`
	DriverID         *handlershared.FlexUint `json:"driver_id"`
	FromLocation     string                  `json:"from_location"`
	ToLocation       string                  `json:"to_location"`
	PlannedDeparture handlershared.FlexDate  `json:"planned_departure"`
	PlannedArrival   handlershared.FlexDate  `json:"planned_arrival"`
	DistanceKM       models.Decimal          `json:"distance_km"`
	Notes            string                  `json:"notes"`
}

func (p stagePayload) toInput() service.TransportStageInput {
	return service.TransportStageInput{
		StageNumber:      p.StageNumber,
		VehicleID:        handlershared.OptionalID(p.VehicleID),
		DriverID:         handlershared.OptionalID(p.DriverID),
		FromLocation:     p.FromLocation,
		ToLocation:       p.ToLocation,
		PlannedDeparture: p.PlannedDeparture.Ptr(),
		PlannedArrival:   p.PlannedArrival.Ptr(),
		DistanceKM:       p.DistanceKM,
		Notes:            p.Notes,
	}
}

type customsPayload struct {
	StageID      *handlershared.FlexUint `json:"stage_id"`
	StageNumber  int                     `json:"stage_number"`
	CustomsName  string                  `json:"customs_name"`
	Country      string                  `json:"country"`
	CrossingDate handlershared.FlexDate  `json:"crossing_date"`
	Notes        string                  `json:"notes"`
}

func (p customsPayload) toInput() service.CustomsPointInput {
	return service.CustomsPointInput{
		StageNumber:  p.StageNumber,
		CustomsName:  p.CustomsName,
		Country:      p.Country,
		CrossingDate: p.CrossingDate.Ptr(),
		Notes:        p.Notes,
	}
}

type multiStageOrderPayload struct {
	Order         orderPayload     `json:"order"`
	Stages        []stagePayload   `json:"stages"`
	CustomsPoints []customsPayload `json:"customs_points"`
}

type driverPayload struct {
	LastName          string                 `json:"last_name"`
	FirstName         string                 `json:"first_name"`
	MiddleName        string                 `json:"middle_name"`
	Phone             string                 `json:"phone"`
	AdditionalPhone   string                 `json:"additional_phone"`
	PassportSeries    string                 `json:"passport_series"`
	PassportNumber    string                 `json:"passport_number"`
	PassportIssuedBy  string                 `json:"passport_issued_by"`
	PassportIssueDate handlershared.FlexDate `json:"passport_issue_date"`
	LicenseSeries     string                 `json:"license_series"`
	LicenseNumber     string                 `json:"license_number"`
	LicenseIssuedBy   string                 `json:"license_issued_by"`
	LicenseIssueDate  handlershared.FlexDate `json:"license_issue_date"`
	Status            string                 `json:"status"`
}

func (p driverPayload) toInput() service.DriverInput {
	return service.DriverInput{
		LastName:          p.LastName,
		FirstName:         p.FirstName,
		MiddleName:        p.MiddleName,
		Phone:             p.Phone,
		AdditionalPhone:   p.AdditionalPhone,
		PassportSeries:    p.PassportSeries,
		PassportNumber:    p.PassportNumber,
		PassportIssuedBy:  p.PassportIssuedBy,
		PassportIssueDate: p.PassportIssueDate.Ptr(),
		LicenseSeries:     p.LicenseSeries,
		LicenseNumber:     p.LicenseNumber,
		LicenseIssuedBy:   p.LicenseIssuedBy,
		LicenseIssueDate:  p.LicenseIssueDate.Ptr(),
		Status:            p.Status,
	}
}

type vehiclePayload struct {
	VehicleType  string                  `json:"vehicle_type"`
	VehicleBrand string                  `json:"vehicle_brand"`
	LicensePlate string                  `json:"license_plate"`
	TrailerPlate string                  `json:"trailer_plate"`
	BodyType     string                  `json:"body_type"`
	CompanyName  string                  `json:"company_name"`
	DriverID     *handlershared.FlexUint `json:"driver_id"`
	Status       string                  `json:"status"`
}

func (p vehiclePayload) toInput() service.VehicleInput {
	return service.VehicleInput{
		VehicleType:  p.VehicleType,
		VehicleBrand: p.VehicleBrand,
		LicensePlate: p.LicensePlate,
		TrailerPlate: p.TrailerPlate,
		BodyType:     p.BodyType,
		CompanyName:  p.CompanyName,
		DriverID:     handlershared.OptionalID(p.DriverID),
		Status:       p.Status,
	}
}

type clientPayload struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
}

func (p clientPayload) toInput() service.ClientInput {
	return service.ClientInput{
		Name:          p.Name,
		ContactPerson: p.ContactPerson,
		Phone:         p.Phone,
		Email:         p.Email,
		Address:       p.Address,
	}
}

type addressPayload struct {
	CustomerID    handlershared.FlexUint `json:"customer_id"`
	AddressName   string                 `json:"address_name"`
	Address       string                 `json:"address"`
	ContactPerson string                 `json:"contact_person"`
	Phone         string                 `json:"phone"`
	IsPrimary     bool                   `json:"is_primary"`
}

func (p addressPayload) toInput() service.CustomerAddressInput {
	return service.CustomerAddressInput{
		CustomerID:    p.CustomerID.Uint(),
		AddressName:   p.AddressName,
		Address:       p.Address,
		ContactPerson: p.ContactPerson,
		Phone:         p.Phone,
		IsPrimary:     p.IsPrimary,
	}
}

type customerPayload struct {
	CompanyName     string           `json:"company_name"`
	Nickname        string           `json:"nickname"`
	INN             string           `json:"inn"`
	KPP             string           `json:"kpp"`
	LegalAddress    string           `json:"legal_address"`
	DirectorName    string           `json:"director_name"`
	ConnectionBasis string           `json:"connection_basis"`
	Addresses       []addressPayload `json:"addresses"`
}

func (p customerPayload) toInput() service.CustomerInput {
	input := service.CustomerInput{
		CompanyName:     p.CompanyName,
		Nickname:        p.Nickname,
		INN:             p.INN,
		KPP:             p.KPP,
		LegalAddress:    p.LegalAddress,
		DirectorName:    p.DirectorName,
		ConnectionBasis: p.ConnectionBasis,
	}
	for _, address := range p.Addresses {
		input.Addresses = append(input.Addresses, address.toInput())
	}
	return input
}

type userPayload struct {
	Username       string                 `json:"username"`
	FullName       string                 `json:"full_name"`
	Password       string                 `json:"password"`
	RoleID         handlershared.FlexUint `json:"role_id"`
	RoleName       string                 `json:"role_name"`
	Role           string                 `json:"role"`
	TelegramChatID string                 `json:"telegram_chat_id"`
	IsActive       *bool                  `json:"is_active"`
}

func (p userPayload) toInput() service.UserInput {
	roleName := strings.TrimSpace(p.RoleName)
	if roleName == "" {
		roleName = strings.TrimSpace(p.Role)
	}
	input := service.UserInput{
		Username:       p.Username,
		FullName:       p.FullName,
		Password:       p.Password,
		RoleName:       roleName,
		TelegramChatID: p.TelegramChatID,
		IsActive:       p.IsActive,
	}
	if p.RoleID != 0 {
		id := p.RoleID.Uint()
		input.RoleID = &id
	}
	return input
}

// rolePayload 角色参数，通知权限可用事件列表或 permissions JSON 表示
type rolePayload struct {
	Name                 string   `json:"name"`
	RoleName             string   `json:"role_name"`
	Description          string   `json:"description"`
	NotificationsEnabled []string `json:"notifications_enabled"`
	Permissions          *struct {
		TelegramNotifications map[string]bool `json:"telegram_notifications"`
	} `json:"permissions"`
}

func (p rolePayload) toInput() service.RoleInput {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(p.RoleName)
	}
	events := append([]string(nil), p.NotificationsEnabled...)
	if p.Permissions != nil {
		for event, enabled := range p.Permissions.TelegramNotifications {
			if enabled {
				events = append(events, event)
			}
		}
	}
	return service.RoleInput{
		Name:                 name,
		Description:          p.Description,
		NotificationsEnabled: events,
	}
}

type documentPayload struct {
	OrderID   handlershared.FlexUint `json:"order_id"`
	DocType   string                 `json:"doc_type"`
	DocNumber string                 `json:"doc_number"`
	FileURL   string                 `json:"file_url"`
}
