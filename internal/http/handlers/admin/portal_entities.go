package admin

import (
	"strings"

	handlershared "github.com/freightdesk/internal/http/handlers/shared"
	"github.com/freightdesk/internal/http/response"
	"github.com/freightdesk/internal/repository"

	"github.com/gin-gonic/gin"
)

func queryEntityFilter(c *gin.Context) repository.EntityListFilter {
	page, pageSize := handlershared.QueryPagination(c)
	return repository.EntityListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	}
}

// respondEntityPage 通用分页输出
func respondEntityPage(c *gin.Context, filter repository.EntityListFilter, items interface{}, total int64, err error) {
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(filter.Page, filter.PageSize, total))
}

func (h *Handler) listDrivers(c *gin.Context) {
	filter := queryEntityFilter(c)
	drivers, total, err := h.FleetService.ListDrivers(filter)
	respondEntityPage(c, filter, drivers, total, err)
}

func (h *Handler) listVehicles(c *gin.Context) {
	filter := queryEntityFilter(c)
	vehicles, total, err := h.FleetService.ListVehicles(filter)
	respondEntityPage(c, filter, vehicles, total, err)
}

func (h *Handler) listClients(c *gin.Context) {
	filter := queryEntityFilter(c)
	clients, total, err := h.FleetService.ListClients(filter)
	respondEntityPage(c, filter, clients, total, err)
}

func (h *Handler) listCustomers(c *gin.Context) {
	filter := queryEntityFilter(c)
	customers, total, err := h.CustomerService.List(filter)
	respondEntityPage(c, filter, customers, total, err)
}

func (h *Handler) listUsers(c *gin.Context) {
	filter := queryEntityFilter(c)
	users, total, err := h.UserService.List(filter)
	respondEntityPage(c, filter, users, total, err)
}

func (h *Handler) listCustomerAddresses(c *gin.Context) {
	customerID, ok := handlershared.QueryUint(c, "customer_id")
	if !ok || customerID == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return
	}
	addresses, err := h.CustomerService.ListAddresses(customerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, addresses)
}

func (h *Handler) listRoles(c *gin.Context) {
	roles, err := h.RoleService.List()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, roles)
}

func (h *Handler) createDriver(c *gin.Context, req *portalRequest) {
	var payload driverPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	driver, err := h.FleetService.CreateDriver(payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, driver)
}

func (h *Handler) updateDriver(c *gin.Context, req *portalRequest) {
	var payload driverPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	driver, err := h.FleetService.UpdateDriver(req.ID.Uint(), payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, driver)
}

func (h *Handler) deleteDriver(_ *gin.Context, id uint) error {
	return h.FleetService.DeleteDriver(id)
}

func (h *Handler) createVehicle(c *gin.Context, req *portalRequest) {
	var payload vehiclePayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	vehicle, err := h.FleetService.CreateVehicle(payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, vehicle)
}

func (h *Handler) updateVehicle(c *gin.Context, req *portalRequest) {
	var payload vehiclePayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	vehicle, err := h.FleetService.UpdateVehicle(req.ID.Uint(), payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, vehicle)
}

func (h *Handler) deleteVehicle(_ *gin.Context, id uint) error {
	return h.FleetService.DeleteVehicle(id)
}

func (h *Handler) createClient(c *gin.Context, req *portalRequest) {
	var payload clientPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	client, err := h.FleetService.CreateClient(payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, client)
}

func (h *Handler) updateClient(c *gin.Context, req *portalRequest) {
	var payload clientPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	client, err := h.FleetService.UpdateClient(req.ID.Uint(), payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, client)
}

func (h *Handler) deleteClient(_ *gin.Context, id uint) error {
	return h.FleetService.DeleteClient(id)
}

func (h *Handler) createCustomer(c *gin.Context, req *portalRequest) {
	var payload customerPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	customer, err := h.CustomerService.Create(payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, customer)
}

func (h *Handler) updateCustomer(c *gin.Context, req *portalRequest) {
	var payload customerPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	customer, err := h.CustomerService.Update(req.ID.Uint(), payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, customer)
}

func (h *Handler) deleteCustomer(_ *gin.Context, id uint) error {
	return h.CustomerService.Delete(id)
}

func (h *Handler) createCustomerAddress(c *gin.Context, req *portalRequest) {
	var payload addressPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	address, err := h.CustomerService.CreateAddress(payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, address)
}

func (h *Handler) updateCustomerAddress(c *gin.Context, req *portalRequest) {
	var payload addressPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	address, err := h.CustomerService.UpdateAddress(req.ID.Uint(), payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, address)
}

func (h *Handler) deleteCustomerAddress(_ *gin.Context, id uint) error {
	return h.CustomerService.DeleteAddress(id)
}

func (h *Handler) createUser(c *gin.Context, req *portalRequest) {
	var payload userPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	user, err := h.UserService.Create(payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *Handler) updateUser(c *gin.Context, req *portalRequest) {
	var payload userPayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	user, err := h.UserService.Update(req.ID.Uint(), payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *Handler) deleteUser(_ *gin.Context, id uint) error {
	return h.UserService.Delete(id)
}

func (h *Handler) createRole(c *gin.Context, req *portalRequest) {
	var payload rolePayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	role, err := h.RoleService.Create(payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, role)
}

// updateRolePermissions 按 role_id / id 或 role_name 定位角色并替换通知权限
func (h *Handler) updateRolePermissions(c *gin.Context, req *portalRequest) {
	var payload rolePayload
	if !decodeOrFail(c, req.Data, &payload) {
		return
	}
	roleID := req.RoleID.Uint()
	if roleID == 0 {
		roleID = req.ID.Uint()
	}
	if roleID == 0 {
		name := strings.TrimSpace(req.RoleName)
		if name == "" {
			name = payload.toInput().Name
		}
		if name == "" {
			respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
			return
		}
		role, err := h.RoleRepo.GetByName(name)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if role == nil {
			respondError(c, response.CodeNotFound, "error.role_not_found", nil)
			return
		}
		roleID = role.ID
	}
	role, err := h.RoleService.UpdatePermissions(roleID, payload.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, role)
}

func (h *Handler) deleteRole(_ *gin.Context, id uint) error {
	return h.RoleService.Delete(id)
}
