package service

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"

	"gorm.io/gorm"
)

// StageView 运输段展示
type StageView struct {
	ID               uint                  `json:"id"`
	OrderID          uint                  `json:"order_id"`
	StageNumber      int                   `json:"stage_number"`
	Label            string                `json:"label"`
	FromLocation     string                `json:"from_location"`
	ToLocation       string                `json:"to_location"`
	Status           string                `json:"status"`
	IsCompleted      bool                  `json:"is_completed"`
	DistanceKM       string                `json:"distance_km"`
	PlannedDeparture *time.Time            `json:"planned_departure"`
	PlannedArrival   *time.Time            `json:"planned_arrival"`
	CompletedAt      *time.Time            `json:"completed_at"`
	CompletedBy      string                `json:"completed_by"`
	Notes            string                `json:"notes"`
	DriverID         *uint                 `json:"driver_id"`
	VehicleID        *uint                 `json:"vehicle_id"`
	DriverName       string                `json:"driver_name"`
	VehicleName      string                `json:"vehicle_name"`
	CustomsPoints    []models.CustomsPoint `json:"customs_points"`
}

// StageService 运输段与旧版流程服务
type StageService struct {
	orderRepo   repository.OrderRepository
	stageRepo   repository.TransportStageRepository
	legacyRepo  repository.OrderStageRepository
	customsRepo repository.CustomsPointRepository
	activity    *ActivityLogService
	notifier    *NotificationService
	dashboard   *DashboardService
}

// NewStageService 创建运输段服务
func NewStageService(
	orderRepo repository.OrderRepository,
	stageRepo repository.TransportStageRepository,
	legacyRepo repository.OrderStageRepository,
	customsRepo repository.CustomsPointRepository,
	activity *ActivityLogService,
	notifier *NotificationService,
	dashboard *DashboardService,
) *StageService {
	return &StageService{
		orderRepo:   orderRepo,
		stageRepo:   stageRepo,
		legacyRepo:  legacyRepo,
		customsRepo: customsRepo,
		activity:    activity,
		notifier:    notifier,
		dashboard:   dashboard,
	}
}

// StageLabel 运输段标题：Этап N: from → to
func StageLabel(stageNumber int, from, to string) string {
	return fmt.Sprintf("Этап %d: %s → %s", stageNumber, strings.TrimSpace(from), strings.TrimSpace(to))
}

// GetOrderStages 按 stage_number 流式返回订单的运输段
// 每次 range 都会重新查询；迭代期间占用一个数据库连接
func (s *StageService) GetOrderStages(orderID uint) iter.Seq2[StageView, error] {
	return func(yield func(StageView, error) bool) {
		if orderID == 0 {
			yield(StageView{}, newValidationError("order_id", "order_id required"))
			return
		}
		points, err := s.customsRepo.ListByOrder(orderID)
		if err != nil {
			yield(StageView{}, err)
			return
		}
		byStage := make(map[uint][]models.CustomsPoint)
		for _, point := range points {
			byStage[point.TransportStageID] = append(byStage[point.TransportStageID], point)
		}

		stopped := false
		err = s.stageRepo.IterateViews(orderID, func(row repository.TransportStageViewRow) bool {
			view := newStageView(row)
			if customs, ok := byStage[row.ID]; ok {
				view.CustomsPoints = customs
			}
			if !yield(view, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(StageView{}, err)
		}
	}
}

// CollectOrderStages 读取全部运输段
func (s *StageService) CollectOrderStages(orderID uint) ([]StageView, error) {
	views := make([]StageView, 0)
	for view, err := range s.GetOrderStages(orderID) {
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func newStageView(row repository.TransportStageViewRow) StageView {
	return StageView{
		ID:               row.ID,
		OrderID:          row.OrderID,
		StageNumber:      row.StageNumber,
		Label:            StageLabel(row.StageNumber, row.FromLocation, row.ToLocation),
		FromLocation:     row.FromLocation,
		ToLocation:       row.ToLocation,
		Status:           row.Status,
		IsCompleted:      row.Status == constants.StageStatusCompleted,
		DistanceKM:       normalizeDistance(row.DistanceKM),
		PlannedDeparture: row.PlannedDeparture,
		PlannedArrival:   row.PlannedArrival,
		CompletedAt:      row.CompletedAt,
		CompletedBy:      row.CompletedBy,
		Notes:            row.Notes,
		DriverID:         row.DriverID,
		VehicleID:        row.VehicleID,
		DriverName:       models.JoinNonEmpty(" ", row.DriverLastName, row.DriverFirstName, row.DriverMiddleName),
		VehicleName:      models.VehicleDisplayName(row.VehicleBrand, row.LicensePlate, row.TrailerPlate),
		CustomsPoints:    []models.CustomsPoint{},
	}
}

// normalizeDistance 统一不同方言 CAST 出来的数字文本
func normalizeDistance(raw string) string {
	parsed, err := models.ParseDecimal(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return parsed.String()
}

// ListLegacyStages 旧版流程
func (s *StageService) ListLegacyStages(orderID uint) ([]models.OrderStage, error) {
	if orderID == 0 {
		return nil, newValidationError("order_id", "order_id required")
	}
	return s.legacyRepo.ListByOrder(orderID)
}

// ListCustomsPoints 订单下的报关点
func (s *StageService) ListCustomsPoints(orderID uint) ([]models.CustomsPoint, error) {
	if orderID == 0 {
		return nil, newValidationError("order_id", "order_id required")
	}
	return s.customsRepo.ListByOrder(orderID)
}

// CompleteStage 旧版流程勾选/取消勾选
// 取消勾选不写日志也不发通知；重复设置同一值为空操作
func (s *StageService) CompleteStage(stageID uint, completed bool, actor string) (*models.OrderStage, error) {
	if stageID == 0 {
		return nil, newValidationError("stage_id", "stage_id required")
	}
	actor = s.activity.ResolveActor(actor)

	var (
		result   *models.OrderStage
		outboxID uint
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		legacyRepo := s.legacyRepo.WithTx(tx)
		stage, err := legacyRepo.GetByID(stageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return ErrStageNotFound
		}
		if stage.IsCompleted == completed {
			result = stage
			return nil
		}

		if !completed {
			if err := legacyRepo.UpdateCompletion(stage.ID, false, "", nil); err != nil {
				return err
			}
			stage.IsCompleted = false
			stage.CompletedBy = ""
			stage.CompletedAt = nil
			result = stage
			return nil
		}

		completedAt := time.Now()
		if err := legacyRepo.UpdateCompletion(stage.ID, true, actor, &completedAt); err != nil {
			return err
		}
		stage.IsCompleted = true
		stage.CompletedBy = actor
		stage.CompletedAt = &completedAt
		result = stage

		order, err := s.orderRepo.WithTx(tx).GetByID(stage.OrderID)
		if err != nil {
			return err
		}
		orderNumber := ""
		if order != nil {
			orderNumber = order.OrderNumber
		}
		orderID := stage.OrderID
		description := fmt.Sprintf("%s выполнил этап \"%s\" в заказе %s", actor, stage.StageName, orderNumber)
		if err := s.activity.Append(tx, &orderID, actor, constants.ActionUpdateStage, description); err != nil {
			return err
		}
		if order == nil {
			return nil
		}
		outboxID, err = s.enqueueStageCompleted(tx, order.ID, stage.StageName, actor, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(outboxID)
	return result, nil
}

// StartTransportStage planned -> in_progress
func (s *StageService) StartTransportStage(stageID uint, actor string) (*models.TransportStage, error) {
	if stageID == 0 {
		return nil, newValidationError("stage_id", "stage_id required")
	}
	actor = s.activity.ResolveActor(actor)

	var result *models.TransportStage
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		stageRepo := s.stageRepo.WithTx(tx)
		stage, err := stageRepo.GetByID(stageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return ErrStageNotFound
		}
		switch stage.Status {
		case constants.StageStatusInProgress:
			result = stage
			return nil
		case constants.StageStatusCompleted:
			return ErrStageTransitionInvalid
		}

		startedAt := time.Now()
		if err := stageRepo.UpdateFields(stage.ID, map[string]interface{}{
			"status":     constants.StageStatusInProgress,
			"started_at": &startedAt,
		}); err != nil {
			return err
		}
		stage.Status = constants.StageStatusInProgress
		stage.StartedAt = &startedAt
		result = stage

		orderNumber, err := s.orderNumber(tx, stage.OrderID)
		if err != nil {
			return err
		}
		orderID := stage.OrderID
		description := fmt.Sprintf("%s начал этап \"%s\" в заказе %s", actor, StageLabel(stage.StageNumber, stage.FromLocation, stage.ToLocation), orderNumber)
		return s.activity.Append(tx, &orderID, actor, constants.ActionUpdateStage, description)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteTransportStage planned|in_progress -> completed，已完成为空操作
func (s *StageService) CompleteTransportStage(stageID uint, actor string) (*models.TransportStage, error) {
	if stageID == 0 {
		return nil, newValidationError("stage_id", "stage_id required")
	}
	actor = s.activity.ResolveActor(actor)

	var (
		result   *models.TransportStage
		outboxID uint
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		stageRepo := s.stageRepo.WithTx(tx)
		stage, err := stageRepo.GetByID(stageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return ErrStageNotFound
		}
		if stage.Status == constants.StageStatusCompleted {
			result = stage
			return nil
		}

		completedAt := time.Now()
		if err := stageRepo.UpdateFields(stage.ID, map[string]interface{}{
			"status":       constants.StageStatusCompleted,
			"completed_at": &completedAt,
			"completed_by": actor,
		}); err != nil {
			return err
		}
		stage.Status = constants.StageStatusCompleted
		stage.CompletedAt = &completedAt
		stage.CompletedBy = actor
		result = stage

		orderNumber, err := s.orderNumber(tx, stage.OrderID)
		if err != nil {
			return err
		}
		label := StageLabel(stage.StageNumber, stage.FromLocation, stage.ToLocation)
		orderID := stage.OrderID
		description := fmt.Sprintf("%s завершил этап \"%s\" в заказе %s", actor, label, orderNumber)
		if err := s.activity.Append(tx, &orderID, actor, constants.ActionUpdateStage, description); err != nil {
			return err
		}
		stageRef := stage.ID
		outboxID, err = s.enqueueStageCompleted(tx, stage.OrderID, label, actor, &stageRef)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("transport_stage_completed", "stage_id", stageID, "actor", actor)
	s.afterWrite(outboxID)
	return result, nil
}

// AddOrderStage 在订单末尾追加计划中的运输段
func (s *StageService) AddOrderStage(orderID uint, input TransportStageInput, actor string) (*models.TransportStage, error) {
	if orderID == 0 {
		return nil, newValidationError("order_id", "order_id required")
	}
	if input.StageNumber < 0 {
		return nil, newValidationError("stage_number", "stage_number must be positive")
	}
	actor = s.activity.ResolveActor(actor)

	var result *models.TransportStage
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderNumber, err := s.orderNumber(tx, orderID)
		if err != nil {
			return err
		}
		stageRepo := s.stageRepo.WithTx(tx)
		maxNumber, err := stageRepo.MaxStageNumber(orderID)
		if err != nil {
			return err
		}
		number := input.StageNumber
		if number == 0 {
			number = maxNumber + 1
		} else {
			existing, err := stageRepo.ListByOrder(orderID)
			if err != nil {
				return err
			}
			for _, item := range existing {
				if item.StageNumber == number {
					return newValidationError("stage_number", fmt.Sprintf("stage_number %d already exists", number))
				}
			}
		}
		input.StageNumber = number
		stage := buildTransportStages([]TransportStageInput{input})[0]
		stage.OrderID = orderID
		if err := stageRepo.Create(&stage); err != nil {
			return err
		}
		result = &stage

		description := fmt.Sprintf("%s добавил этап \"%s\" в заказ %s", actor, StageLabel(stage.StageNumber, stage.FromLocation, stage.ToLocation), orderNumber)
		return s.activity.Append(tx, &orderID, actor, constants.ActionAddStage, description)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteOrderStage 删除运输段及其报关点
func (s *StageService) DeleteOrderStage(stageID uint, actor string) error {
	if stageID == 0 {
		return newValidationError("stage_id", "stage_id required")
	}
	actor = s.activity.ResolveActor(actor)

	return models.DB.Transaction(func(tx *gorm.DB) error {
		stageRepo := s.stageRepo.WithTx(tx)
		stage, err := stageRepo.GetByID(stageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return ErrStageNotFound
		}
		if err := s.customsRepo.WithTx(tx).DeleteByStage(stage.ID); err != nil {
			return err
		}
		if err := stageRepo.Delete(stage.ID); err != nil {
			return err
		}
		orderNumber, err := s.orderNumber(tx, stage.OrderID)
		if err != nil {
			return err
		}
		orderID := stage.OrderID
		description := fmt.Sprintf("%s удалил этап \"%s\" из заказа %s", actor, StageLabel(stage.StageNumber, stage.FromLocation, stage.ToLocation), orderNumber)
		return s.activity.Append(tx, &orderID, actor, constants.ActionDeleteStage, description)
	})
}

// AddCustomsPoint 报关点挂到指定运输段，未指定时挂到最后一段
func (s *StageService) AddCustomsPoint(orderID uint, stageID *uint, input CustomsPointInput, actor string) (*models.CustomsPoint, error) {
	if orderID == 0 {
		return nil, newValidationError("order_id", "order_id required")
	}
	if strings.TrimSpace(input.CustomsName) == "" {
		return nil, newValidationError("customs_name", "customs_name required")
	}
	actor = s.activity.ResolveActor(actor)

	var result *models.CustomsPoint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderNumber, err := s.orderNumber(tx, orderID)
		if err != nil {
			return err
		}
		stageRepo := s.stageRepo.WithTx(tx)
		var stage *models.TransportStage
		if id := normalizeOptionalID(stageID); id != nil {
			stage, err = stageRepo.GetByID(*id)
			if err != nil {
				return err
			}
			if stage == nil {
				return ErrStageNotFound
			}
			if stage.OrderID != orderID {
				return newValidationError("stage_id", "stage does not belong to order")
			}
		} else {
			stage, err = stageRepo.LastByOrder(orderID)
			if err != nil {
				return err
			}
			if stage == nil {
				return newValidationError("stage_id", "order has no stages")
			}
		}

		point := newCustomsPoint(orderID, stage.ID, input)
		if err := s.customsRepo.WithTx(tx).CreateBatch([]models.CustomsPoint{point}); err != nil {
			return err
		}
		points, err := s.customsRepo.WithTx(tx).ListByStage(stage.ID)
		if err != nil {
			return err
		}
		if len(points) > 0 {
			created := points[len(points)-1]
			result = &created
		}

		description := fmt.Sprintf("%s добавил таможенный пункт \"%s\" в заказ %s", actor, point.CustomsName, orderNumber)
		return s.activity.Append(tx, &orderID, actor, constants.ActionAddCustoms, description)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *StageService) orderNumber(tx *gorm.DB, orderID uint) (string, error) {
	order, err := s.orderRepo.WithTx(tx).GetByID(orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", ErrOrderNotFound
	}
	return order.OrderNumber, nil
}

// enqueueStageCompleted 写入 stage_completed 发件箱记录；stageID 非空时用该段的车辆与司机
func (s *StageService) enqueueStageCompleted(tx *gorm.DB, orderID uint, stageName, actor string, stageID *uint) (uint, error) {
	if s.notifier == nil {
		return 0, nil
	}
	payload, err := s.notifier.BuildOrderPayload(tx, orderID)
	if err != nil {
		return 0, err
	}
	if stageID != nil {
		err := s.stageRepo.WithTx(tx).IterateViews(orderID, func(row repository.TransportStageViewRow) bool {
			if row.ID != *stageID {
				return true
			}
			applyStageToPayload(&payload, row)
			return false
		})
		if err != nil {
			return 0, err
		}
	}
	payload.StageName = stageName
	payload.CompletedBy = actor
	return s.notifier.Enqueue(tx, constants.NotificationEventStageCompleted, &orderID, payload)
}

func (s *StageService) afterWrite(outboxID uint) {
	if outboxID != 0 && s.notifier != nil {
		s.notifier.Publish(outboxID)
	}
	s.dashboard.Invalidate(context.Background())
}
