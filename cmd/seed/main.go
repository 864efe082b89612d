package main

import (
	"errors"
	"time"

	"github.com/freightdesk/internal/config"
	"github.com/freightdesk/internal/logger"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/provider"
	"github.com/freightdesk/internal/service"

	"github.com/shopspring/decimal"
)

const seedActor = "Seed"

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.LogLevel, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultRoles(); err != nil {
		stdLog.Fatalf("Failed to init roles: %v", err)
	}

	// 种子数据的通知在进程内同步投递
	cfg.Queue.Enabled = false
	cfg.Notification.InlineDelivery = true
	c := provider.NewContainer(cfg)
	defer c.Close()

	// 司机与车辆
	var driverIDs []uint
	var count int64
	if err := models.DB.Model(&models.Driver{}).Count(&count).Error; err != nil {
		stdLog.Fatalf("Failed to count drivers: %v", err)
	}
	if count == 0 {
		drivers := []service.DriverInput{
			{LastName: "Иванов", FirstName: "Сергей", MiddleName: "Петрович", Phone: "+7 900 111-22-33", LicenseNumber: "77 12 345678"},
			{LastName: "Кузнецов", FirstName: "Андрей", Phone: "+7 900 444-55-66", LicenseNumber: "50 98 765432"},
		}
		for _, input := range drivers {
			driver, err := c.FleetService.CreateDriver(input)
			if err != nil {
				stdLog.Printf("Failed to create driver %s: %v", input.LastName, err)
				continue
			}
			driverIDs = append(driverIDs, driver.ID)
			stdLog.Printf("Created driver: %s", driver.LastName)
		}
		plates := []string{"А123ВС77", "В456ЕК50"}
		for i, plate := range plates {
			input := service.VehicleInput{VehicleType: "Тягач", VehicleBrand: "Volvo FH", LicensePlate: plate, BodyType: "Тент"}
			if i < len(driverIDs) {
				id := driverIDs[i]
				input.DriverID = &id
			}
			if _, err := c.FleetService.CreateVehicle(input); err != nil {
				stdLog.Printf("Failed to create vehicle %s: %v", plate, err)
				continue
			}
			stdLog.Printf("Created vehicle: %s", plate)
		}
	} else {
		stdLog.Printf("Drivers already exist, skip fleet seed")
	}

	// 承运商与客户
	client, err := c.FleetService.CreateClient(service.ClientInput{
		Name:          "ТрансЛайн",
		ContactPerson: "Смирнова Ольга",
		Phone:         "+7 495 000-00-00",
		Email:         "dispatch@transline.example",
	})
	if err != nil {
		stdLog.Printf("Failed to create client: %v", err)
	}
	customer, err := c.CustomerService.Create(service.CustomerInput{
		CompanyName:  "ООО Северный Импорт",
		Nickname:     "Северный",
		INN:          "7701234567",
		KPP:          "770101001",
		LegalAddress: "Москва, ул. Лесная, 5",
		Addresses: []service.CustomerAddressInput{
			{AddressName: "Склад", Address: "Подольск, Промзона 2", IsPrimary: true},
		},
	})
	if err != nil {
		stdLog.Printf("Failed to create customer: %v", err)
	}

	// 多段订单
	orderDate := time.Now()
	input := service.CreateMultiStageOrderInput{
		CreateOrderInput: service.CreateOrderInput{
			OrderNumber: "DEMO-001",
			OrderDate:   &orderDate,
			CargoType:   "Оборудование",
			CargoWeight: models.NewDecimal(decimal.NewFromFloat(18.5)),
			Invoice:     "INV-2025-001",
			Actor:       seedActor,
		},
		Stages: []service.TransportStageInput{
			{FromLocation: "Шанхай", ToLocation: "Владивосток", DistanceKM: models.NewDecimal(decimal.NewFromInt(1850))},
			{FromLocation: "Владивосток", ToLocation: "Москва", DistanceKM: models.NewDecimal(decimal.NewFromInt(9300))},
		},
		CustomsPoints: []service.CustomsPointInput{{CustomsName: "Владивостокская таможня", Country: "RU"}},
	}
	if client != nil {
		input.ClientID = &client.ID
	}
	if customer != nil {
		input.CustomerItems = []service.OrderCustomerItem{{CustomerID: customer.ID, Note: "Основной получатель"}}
	}
	if len(driverIDs) > 0 {
		input.Stages[1].DriverID = &driverIDs[0]
	}
	order, err := c.OrderService.CreateMultiStageOrder(input)
	switch {
	case errors.Is(err, service.ErrOrderNumberExists):
		stdLog.Printf("Order already exists: %s", input.OrderNumber)
	case err != nil:
		stdLog.Printf("Failed to create order: %v", err)
	default:
		stdLog.Printf("Created order: %s (id=%d)", order.OrderNumber, order.ID)
	}

	stdLog.Printf("Seed data initialized successfully!")
}
