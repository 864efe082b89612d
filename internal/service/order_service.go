package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// legacyStageTemplate 新订单的固定四步流程
var legacyStageTemplate = []string{
	"Заказ подтвержден поставщиком",
	"Заказ отгружен",
	"В пути к клиенту",
	"Доставлен клиенту",
}

// orderNumberDateLayout 订单编号中的日期格式 DDMMYYYY
const orderNumberDateLayout = "02012006"

// OrderOptions 订单行为配置
type OrderOptions struct {
	// CustomsFanout 为 true 时每个报关点挂到所有运输段
	CustomsFanout  bool
	DefaultStatus  string
	LegacyTemplate bool
}

// OrderCustomerItem 订单付款客户
type OrderCustomerItem struct {
	CustomerID uint   `json:"customer_id"`
	Note       string `json:"note"`
}

// TransportStageInput 运输段参数
type TransportStageInput struct {
	StageNumber      int
	VehicleID        *uint
	DriverID         *uint
	FromLocation     string
	ToLocation       string
	PlannedDeparture *time.Time
	PlannedArrival   *time.Time
	DistanceKM       models.Decimal
	Notes            string
}

// CustomsPointInput 报关点参数
type CustomsPointInput struct {
	StageNumber  int
	CustomsName  string
	Country      string
	CrossingDate *time.Time
	Notes        string
}

// CreateOrderInput 创建订单参数
type CreateOrderInput struct {
	OrderNumber   string
	OrderDate     *time.Time
	Status        string
	ClientID      *uint
	CargoType     string
	CargoWeight   models.Decimal
	Invoice       string
	TrackNumber   string
	Notes         string
	Attachments   []string
	CustomerItems []OrderCustomerItem
	Actor         string
}

// CreateMultiStageOrderInput 创建多段运输订单参数
type CreateMultiStageOrderInput struct {
	CreateOrderInput
	Stages        []TransportStageInput
	CustomsPoints []CustomsPointInput
}

// UpdateOrderInput 订单局部更新参数，nil 字段保持不变
// ClientID 指向 0 表示解除承运商；ClearOrderDate 清空订单日期
type UpdateOrderInput struct {
	OrderNumber    *string
	OrderDate      *time.Time
	ClearOrderDate bool
	Status         *string
	ClientID       *uint
	CargoType      *string
	CargoWeight    *models.Decimal
	Invoice        *string
	TrackNumber    *string
	Notes          *string
	Attachments    *[]string
	CustomerItems  *[]OrderCustomerItem
	Actor          string
}

// OrderView 订单展示（状态与路线取自第一个运输段）
type OrderView struct {
	models.Order
	DisplayStatus string   `json:"display_status"`
	Route         string   `json:"route"`
	CustomerNames []string `json:"customers"`
	CarrierName   string   `json:"carrier"`
	StageCount    int      `json:"stage_count"`
}

// LastOrderNumber 当日最新订单编号与下一个序号
type LastOrderNumber struct {
	Prefix          string `json:"prefix"`
	LastNumber      string `json:"last_number"`
	NextNumber      string `json:"next_number"`
	NextOrderNumber string `json:"next_order_number"`
}

// OrderService 订单服务
type OrderService struct {
	orderRepo    repository.OrderRepository
	stageRepo    repository.TransportStageRepository
	legacyRepo   repository.OrderStageRepository
	customsRepo  repository.CustomsPointRepository
	customerRepo repository.CustomerRepository
	clientRepo   repository.ClientRepository
	activity     *ActivityLogService
	notifier     *NotificationService
	dashboard    *DashboardService
	options      OrderOptions
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	stageRepo repository.TransportStageRepository,
	legacyRepo repository.OrderStageRepository,
	customsRepo repository.CustomsPointRepository,
	customerRepo repository.CustomerRepository,
	clientRepo repository.ClientRepository,
	activity *ActivityLogService,
	notifier *NotificationService,
	dashboard *DashboardService,
	options OrderOptions,
) *OrderService {
	if strings.TrimSpace(options.DefaultStatus) == "" {
		options.DefaultStatus = constants.OrderStatusPending
	}
	return &OrderService{
		orderRepo:    orderRepo,
		stageRepo:    stageRepo,
		legacyRepo:   legacyRepo,
		customsRepo:  customsRepo,
		customerRepo: customerRepo,
		clientRepo:   clientRepo,
		activity:     activity,
		notifier:     notifier,
		dashboard:    dashboard,
		options:      options,
	}
}

// CreateOrder 创建不含运输段的订单
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	return s.CreateMultiStageOrder(CreateMultiStageOrderInput{CreateOrderInput: input})
}

// CreateMultiStageOrder 在单个事务内创建订单、客户、流程、运输段与报关点
func (s *OrderService) CreateMultiStageOrder(input CreateMultiStageOrderInput) (*models.Order, error) {
	order, err := s.buildOrder(input.CreateOrderInput)
	if err != nil {
		return nil, err
	}
	if _, err := s.validateReferences(input.ClientID, input.CustomerItems); err != nil {
		return nil, err
	}
	stages := buildTransportStages(input.Stages)
	if err := validateStageInputs(input.Stages); err != nil {
		return nil, err
	}
	customers := buildOrderCustomers(input.CustomerItems)
	actor := s.activity.ResolveActor(input.Actor)
	order.CreatedBy = actor

	var outboxID uint
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		exists, err := orderRepo.ExistsByNumber(order.OrderNumber, 0)
		if err != nil {
			return err
		}
		if exists {
			return ErrOrderNumberExists
		}
		if err := orderRepo.Create(order); err != nil {
			return err
		}
		if err := orderRepo.ReplaceCustomers(order.ID, customers); err != nil {
			return err
		}
		if s.options.LegacyTemplate {
			if err := s.legacyRepo.WithTx(tx).CreateBatch(buildLegacyStages(order.ID)); err != nil {
				return err
			}
		}

		stageRepo := s.stageRepo.WithTx(tx)
		for i := range stages {
			stages[i].OrderID = order.ID
			if err := stageRepo.Create(&stages[i]); err != nil {
				return err
			}
		}
		points, err := s.planCustomsPoints(order.ID, stages, input.CustomsPoints)
		if err != nil {
			return err
		}
		if err := s.customsRepo.WithTx(tx).CreateBatch(points); err != nil {
			return err
		}

		orderID := order.ID
		description := fmt.Sprintf("%s создал заказ %s", actor, order.OrderNumber)
		if err := s.activity.Append(tx, &orderID, actor, constants.ActionCreateOrder, description); err != nil {
			return err
		}
		outboxID, err = s.enqueueOrderEvent(tx, constants.NotificationEventOrderCreated, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.ForOrder(order.ID, order.OrderNumber).Infow("order_created",
		"stage_count", len(stages),
		"actor", actor,
	)
	s.afterWrite(outboxID)
	return order, nil
}

func (s *OrderService) buildOrder(input CreateOrderInput) (*models.Order, error) {
	number := strings.TrimSpace(input.OrderNumber)
	if number == "" {
		return nil, ErrOrderNumberRequired
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = s.options.DefaultStatus
	}
	return &models.Order{
		OrderNumber: number,
		OrderDate:   input.OrderDate,
		Status:      status,
		ClientID:    normalizeOptionalID(input.ClientID),
		CargoType:   strings.TrimSpace(input.CargoType),
		CargoWeight: input.CargoWeight,
		Invoice:     strings.TrimSpace(input.Invoice),
		TrackNumber: strings.TrimSpace(input.TrackNumber),
		Notes:       strings.TrimSpace(input.Notes),
		Attachments: models.StringArray(input.Attachments),
	}, nil
}

// validateReferences 在事务外校验承运商与付款客户存在，返回承运商名称
func (s *OrderService) validateReferences(clientID *uint, items []OrderCustomerItem) (string, error) {
	clientName := ""
	if id := normalizeOptionalID(clientID); id != nil {
		client, err := s.clientRepo.GetByID(*id)
		if err != nil {
			return "", err
		}
		if client == nil {
			return "", newValidationError("client_id", fmt.Sprintf("client %d not found", *id))
		}
		clientName = client.Name
	}
	if len(items) == 0 {
		return clientName, nil
	}
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if item.CustomerID == 0 {
			return "", newValidationError("customer_items", "customer_id required")
		}
		ids = append(ids, item.CustomerID)
	}
	found, err := s.customerRepo.ListByIDs(ids)
	if err != nil {
		return "", err
	}
	known := make(map[uint]struct{}, len(found))
	for _, customer := range found {
		known[customer.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return "", newValidationError("customer_items", fmt.Sprintf("customer %d not found", id))
		}
	}
	return clientName, nil
}

func validateStageInputs(stages []TransportStageInput) error {
	seen := make(map[int]struct{}, len(stages))
	for i, stage := range stages {
		number := stage.StageNumber
		if number == 0 {
			number = i + 1
		}
		if number < 0 {
			return newValidationError("stages", "stage_number must be positive")
		}
		if _, ok := seen[number]; ok {
			return newValidationError("stages", fmt.Sprintf("duplicate stage_number %d", number))
		}
		seen[number] = struct{}{}
	}
	return nil
}

func buildTransportStages(inputs []TransportStageInput) []models.TransportStage {
	stages := make([]models.TransportStage, 0, len(inputs))
	for i, input := range inputs {
		number := input.StageNumber
		if number == 0 {
			number = i + 1
		}
		stages = append(stages, models.TransportStage{
			StageNumber:      number,
			VehicleID:        normalizeOptionalID(input.VehicleID),
			DriverID:         normalizeOptionalID(input.DriverID),
			FromLocation:     strings.TrimSpace(input.FromLocation),
			ToLocation:       strings.TrimSpace(input.ToLocation),
			PlannedDeparture: input.PlannedDeparture,
			PlannedArrival:   input.PlannedArrival,
			DistanceKM:       input.DistanceKM,
			Notes:            strings.TrimSpace(input.Notes),
			Status:           constants.StageStatusPlanned,
		})
	}
	return stages
}

func buildOrderCustomers(items []OrderCustomerItem) []models.OrderCustomer {
	customers := make([]models.OrderCustomer, 0, len(items))
	for i, item := range items {
		customers = append(customers, models.OrderCustomer{
			CustomerID: item.CustomerID,
			Position:   i + 1,
			Note:       strings.TrimSpace(item.Note),
		})
	}
	return customers
}

func buildLegacyStages(orderID uint) []models.OrderStage {
	stages := make([]models.OrderStage, 0, len(legacyStageTemplate))
	for i, name := range legacyStageTemplate {
		stages = append(stages, models.OrderStage{
			OrderID:    orderID,
			StageName:  name,
			StageOrder: i + 1,
		})
	}
	return stages
}

// planCustomsPoints 按配置把报关点分配到运输段
func (s *OrderService) planCustomsPoints(orderID uint, stages []models.TransportStage, inputs []CustomsPointInput) ([]models.CustomsPoint, error) {
	named := make([]CustomsPointInput, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input.CustomsName) != "" {
			named = append(named, input)
		}
	}
	if len(named) == 0 {
		return nil, nil
	}
	if len(stages) == 0 {
		return nil, newValidationError("customs_points", "customs points require at least one stage")
	}

	byNumber := make(map[int]uint, len(stages))
	for _, stage := range stages {
		byNumber[stage.StageNumber] = stage.ID
	}

	points := make([]models.CustomsPoint, 0, len(named)*len(stages))
	for _, input := range named {
		if s.options.CustomsFanout {
			for _, stage := range stages {
				points = append(points, newCustomsPoint(orderID, stage.ID, input))
			}
			continue
		}
		stageID := stages[0].ID
		if input.StageNumber != 0 {
			id, ok := byNumber[input.StageNumber]
			if !ok {
				return nil, newValidationError("customs_points", fmt.Sprintf("stage_number %d not found", input.StageNumber))
			}
			stageID = id
		}
		points = append(points, newCustomsPoint(orderID, stageID, input))
	}
	return points, nil
}

func newCustomsPoint(orderID, stageID uint, input CustomsPointInput) models.CustomsPoint {
	return models.CustomsPoint{
		TransportStageID: stageID,
		OrderID:          orderID,
		CustomsName:      strings.TrimSpace(input.CustomsName),
		Country:          strings.TrimSpace(input.Country),
		CrossingDate:     input.CrossingDate,
		Notes:            strings.TrimSpace(input.Notes),
	}
}

// UpdateOrder 局部更新订单；状态切换到装货/在途/送达时发送通知
func (s *OrderService) UpdateOrder(id uint, input UpdateOrderInput) (*models.Order, error) {
	if id == 0 {
		return nil, newValidationError("id", "id required")
	}
	clientName := ""
	if input.ClientID != nil || input.CustomerItems != nil {
		var items []OrderCustomerItem
		if input.CustomerItems != nil {
			items = *input.CustomerItems
		}
		name, err := s.validateReferences(input.ClientID, items)
		if err != nil {
			return nil, err
		}
		clientName = name
	}
	actor := s.activity.ResolveActor(input.Actor)

	var (
		updated  *models.Order
		outboxID uint
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByID(id)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		previousNumber := order.OrderNumber
		previousStatus := order.Status

		changes, err := s.applyOrderPatch(tx, order, input, clientName)
		if err != nil {
			return err
		}
		if err := orderRepo.Update(order); err != nil {
			return err
		}
		if input.CustomerItems != nil {
			if err := orderRepo.ReplaceCustomers(order.ID, buildOrderCustomers(*input.CustomerItems)); err != nil {
				return err
			}
		}

		if len(changes) > 0 {
			description := fmt.Sprintf("%s %s в заказе %s", actor, strings.Join(changes, " и "), previousNumber)
			if err := s.activity.Append(tx, &order.ID, actor, constants.ActionUpdateOrder, description); err != nil {
				return err
			}
		}
		if event, ok := statusNotificationEvent(order.Status); ok && order.Status != previousStatus {
			outboxID, err = s.enqueueOrderEvent(tx, event, order.ID)
			if err != nil {
				return err
			}
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(outboxID)
	return updated, nil
}

// applyOrderPatch 应用非 nil 字段并返回变更描述
func (s *OrderService) applyOrderPatch(tx *gorm.DB, order *models.Order, input UpdateOrderInput, clientName string) ([]string, error) {
	changes := make([]string, 0, 4)
	if input.OrderNumber != nil {
		number := strings.TrimSpace(*input.OrderNumber)
		if number == "" {
			return nil, ErrOrderNumberRequired
		}
		if number != order.OrderNumber {
			exists, err := s.orderRepo.WithTx(tx).ExistsByNumber(number, order.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrOrderNumberExists
			}
			order.OrderNumber = number
			changes = append(changes, "изменил номер заказа на "+number)
		}
	}
	if input.OrderDate != nil && !sameDate(order.OrderDate, input.OrderDate) {
		date := *input.OrderDate
		order.OrderDate = &date
		changes = append(changes, "изменил дату заказа на "+date.Format("02.01.2006"))
	} else if input.OrderDate == nil && input.ClearOrderDate && order.OrderDate != nil {
		order.OrderDate = nil
		changes = append(changes, "убрал дату заказа")
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if status == "" {
			return nil, newValidationError("status", "status must not be empty")
		}
		if status != order.Status {
			order.Status = status
			changes = append(changes, "изменил статус на "+status)
		}
	}
	if input.ClientID != nil {
		clientID := normalizeOptionalID(input.ClientID)
		if !sameOptionalID(order.ClientID, clientID) {
			order.ClientID = clientID
			order.Client = nil
			if clientID == nil {
				changes = append(changes, "снял перевозчика")
			} else {
				changes = append(changes, "назначил перевозчика "+clientName)
			}
		}
	}
	if input.CargoType != nil && strings.TrimSpace(*input.CargoType) != order.CargoType {
		order.CargoType = strings.TrimSpace(*input.CargoType)
		changes = append(changes, "изменил тип груза")
	}
	if input.CargoWeight != nil && !input.CargoWeight.Equal(order.CargoWeight.Decimal) {
		order.CargoWeight = *input.CargoWeight
		changes = append(changes, "изменил вес груза на "+input.CargoWeight.String())
	}
	if input.Invoice != nil && strings.TrimSpace(*input.Invoice) != order.Invoice {
		order.Invoice = strings.TrimSpace(*input.Invoice)
		changes = append(changes, "изменил инвойс на "+order.Invoice)
	}
	if input.TrackNumber != nil && strings.TrimSpace(*input.TrackNumber) != order.TrackNumber {
		order.TrackNumber = strings.TrimSpace(*input.TrackNumber)
		changes = append(changes, "изменил трек-номер на "+order.TrackNumber)
	}
	if input.Notes != nil && strings.TrimSpace(*input.Notes) != order.Notes {
		order.Notes = strings.TrimSpace(*input.Notes)
		changes = append(changes, "обновил примечания")
	}
	if input.Attachments != nil {
		order.Attachments = models.StringArray(*input.Attachments)
		changes = append(changes, "обновил вложения")
	}
	if input.CustomerItems != nil {
		changes = append(changes, "обновил список заказчиков")
	}
	return changes, nil
}

// AddOrderNote 追加一行备注
func (s *OrderService) AddOrderNote(id uint, note, actor string) (*models.Order, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, newValidationError("note", "note required")
	}
	actor = s.activity.ResolveActor(actor)

	var updated *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByID(id)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Notes == "" {
			order.Notes = note
		} else {
			order.Notes = order.Notes + "\n" + note
		}
		if err := orderRepo.Update(order); err != nil {
			return err
		}
		description := fmt.Sprintf("%s добавил примечание к заказу %s", actor, order.OrderNumber)
		if err := s.activity.Append(tx, &order.ID, actor, constants.ActionAddNote, description); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteOrder 级联删除订单，不写操作日志
func (s *OrderService) DeleteOrder(id uint) error {
	if id == 0 {
		return newValidationError("id", "id required")
	}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByID(id)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		return orderRepo.DeleteCascade(id)
	})
	if err != nil {
		return err
	}
	logger.Infow("order_deleted", "order_id", id)
	s.afterWrite(0)
	return nil
}

// GetOrder 订单详情
func (s *OrderService) GetOrder(id uint) (*OrderView, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	view := newOrderView(*order)
	return &view, nil
}

// ListOrders 订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]OrderView, int64, error) {
	orders, total, err := s.orderRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, newOrderView(order))
	}
	return views, total, nil
}

func newOrderView(order models.Order) OrderView {
	view := OrderView{
		Order:         order,
		DisplayStatus: order.Status,
		CustomerNames: make([]string, 0, len(order.Customers)),
		StageCount:    len(order.TransportStages),
	}
	if order.Client != nil {
		view.CarrierName = order.Client.Name
	}
	for _, item := range order.Customers {
		if item.Customer != nil {
			view.CustomerNames = append(view.CustomerNames, item.Customer.DisplayName())
		}
	}
	if len(order.TransportStages) > 0 {
		stages := append([]models.TransportStage(nil), order.TransportStages...)
		sort.SliceStable(stages, func(i, j int) bool {
			return stages[i].StageNumber < stages[j].StageNumber
		})
		first := stages[0]
		view.DisplayStatus = first.Status
		view.Route = formatRoute(first.FromLocation, first.ToLocation)
	}
	return view
}

// GetLastOrderNumber 计算 <方向><DDMMYYYY>-<NNN> 的最新编号与下一个序号
func (s *OrderService) GetLastOrderNumber(direction, date string) (*LastOrderNumber, error) {
	direction = strings.ToUpper(strings.TrimSpace(direction))
	if direction == "" {
		return nil, newValidationError("direction", "direction required")
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = now.BeginningOfDay().Format(orderNumberDateLayout)
	} else if _, err := time.Parse(orderNumberDateLayout, date); err != nil {
		return nil, newValidationError("date", "date must be DDMMYYYY")
	}

	prefix := direction + date + "-"
	numbers, err := s.orderRepo.ListNumbersWithPrefix(prefix)
	if err != nil {
		return nil, err
	}
	result := &LastOrderNumber{Prefix: prefix}
	maxSuffix := 0
	for _, number := range numbers {
		suffix, err := strconv.Atoi(strings.TrimPrefix(number, prefix))
		if err != nil || suffix < 0 {
			continue
		}
		if suffix > maxSuffix {
			maxSuffix = suffix
			result.LastNumber = number
		}
	}
	result.NextNumber = fmt.Sprintf("%03d", maxSuffix+1)
	result.NextOrderNumber = prefix + result.NextNumber
	return result, nil
}

// enqueueOrderEvent 在事务内构建通知并写入发件箱
func (s *OrderService) enqueueOrderEvent(tx *gorm.DB, event string, orderID uint) (uint, error) {
	if s.notifier == nil {
		return 0, nil
	}
	payload, err := s.notifier.BuildOrderPayload(tx, orderID)
	if err != nil {
		return 0, err
	}
	return s.notifier.Enqueue(tx, event, &orderID, payload)
}

// afterWrite 提交后：投递通知并清理统计缓存
func (s *OrderService) afterWrite(outboxID uint) {
	if outboxID != 0 && s.notifier != nil {
		s.notifier.Publish(outboxID)
	}
	s.dashboard.Invalidate(context.Background())
}

// statusNotificationEvent 订单状态到通知事件的映射
func statusNotificationEvent(status string) (string, bool) {
	switch status {
	case constants.OrderStatusLoading:
		return constants.NotificationEventOrderLoaded, true
	case constants.OrderStatusInTransit:
		return constants.NotificationEventOrderInTransit, true
	case constants.OrderStatusDelivered:
		return constants.NotificationEventOrderDelivered, true
	default:
		return "", false
	}
}

func normalizeOptionalID(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	value := *id
	return &value
}

func sameOptionalID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
