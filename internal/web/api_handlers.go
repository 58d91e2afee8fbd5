package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/estateops/estatecrm/internal/db"
)

// sanitizeError returns a user-safe error message without exposing internal details.
// Internal error details are logged but not returned to the client.
func sanitizeError(err error, userMessage string) string {
	if err != nil {
		// Log the full error for debugging (server-side only)
		log.Printf("Error: %s - Details: %v", userMessage, err)
	}
	return userMessage
}

// --- Agents ---

type agentRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	ColorID string `json:"color_id"`
}

// APIListAgents returns all agents.
func (h *Handlers) APIListAgents(c *gin.Context) {
	agents, err := h.db.ListAgents()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load agents")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

// APIGetAgent returns a single agent.
func (h *Handlers) APIGetAgent(c *gin.Context) {
	agent, err := h.db.GetAgentByID(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load agent")})
		return
	}
	c.JSON(http.StatusOK, agent)
}

// APICreateAgent creates a new agent.
func (h *Handlers) APICreateAgent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	agent := &db.Agent{
		Name:    req.Name,
		Email:   req.Email,
		ColorID: req.ColorID,
	}
	if err := h.db.CreateAgent(agent); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "An agent with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to create agent")})
		return
	}
	c.JSON(http.StatusCreated, agent)
}

// APIUpdateAgent updates an agent.
func (h *Handlers) APIUpdateAgent(c *gin.Context) {
	agent, err := h.db.GetAgentByID(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load agent")})
		return
	}

	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	agent.Name = req.Name
	agent.Email = req.Email
	agent.ColorID = req.ColorID
	if err := h.db.UpdateAgent(agent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to update agent")})
		return
	}
	c.JSON(http.StatusOK, agent)
}

// APIDeleteAgent deletes an agent.
func (h *Handlers) APIDeleteAgent(c *gin.Context) {
	if err := h.db.DeleteAgent(c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to delete agent")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agent deleted"})
}

// --- Contacts ---

type contactRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// APIListContacts returns all contacts.
func (h *Handlers) APIListContacts(c *gin.Context) {
	contacts, err := h.db.ListContacts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load contacts")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// APIGetContact returns a single contact.
func (h *Handlers) APIGetContact(c *gin.Context) {
	contact, err := h.db.GetContactByID(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load contact")})
		return
	}
	c.JSON(http.StatusOK, contact)
}

// APICreateContact creates a new contact.
func (h *Handlers) APICreateContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	contact := &db.Contact{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if err := h.db.CreateContact(contact); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to create contact")})
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// APIUpdateContact updates a contact.
func (h *Handlers) APIUpdateContact(c *gin.Context) {
	contact, err := h.db.GetContactByID(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load contact")})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	contact.FullName = req.FullName
	contact.Email = req.Email
	contact.Phone = req.Phone
	if err := h.db.UpdateContact(contact); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to update contact")})
		return
	}
	c.JSON(http.StatusOK, contact)
}

// APIDeleteContact deletes a contact.
func (h *Handlers) APIDeleteContact(c *gin.Context) {
	if err := h.db.DeleteContact(c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to delete contact")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contact deleted"})
}

// --- Properties ---

type propertyRequest struct {
	Code        string `json:"code" binding:"required"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Description string `json:"description"`
}

// APIListProperties returns all properties.
func (h *Handlers) APIListProperties(c *gin.Context) {
	properties, err := h.db.ListProperties()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load properties")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": properties})
}

// APIGetProperty returns a single property.
func (h *Handlers) APIGetProperty(c *gin.Context) {
	property, err := h.db.GetPropertyByID(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load property")})
		return
	}
	c.JSON(http.StatusOK, property)
}

// APICreateProperty creates a new property.
func (h *Handlers) APICreateProperty(c *gin.Context) {
	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	property := &db.Property{
		Code:        req.Code,
		Address:     req.Address,
		City:        req.City,
		Description: req.Description,
	}
	if err := h.db.CreateProperty(property); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "A property with this code already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to create property")})
		return
	}
	c.JSON(http.StatusCreated, property)
}

// APIUpdateProperty updates a property.
func (h *Handlers) APIUpdateProperty(c *gin.Context) {
	property, err := h.db.GetPropertyByID(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load property")})
		return
	}

	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	property.Code = req.Code
	property.Address = req.Address
	property.City = req.City
	property.Description = req.Description
	if err := h.db.UpdateProperty(property); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to update property")})
		return
	}
	c.JSON(http.StatusOK, property)
}

// APIDeleteProperty deletes a property.
func (h *Handlers) APIDeleteProperty(c *gin.Context) {
	if err := h.db.DeleteProperty(c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to delete property")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted"})
}

// --- Appointments ---

type appointmentRequest struct {
	Title      string     `json:"title" binding:"required"`
	Start      *time.Time `json:"start"`
	End        *time.Time `json:"end"`
	Location   string     `json:"location"`
	Notes      string     `json:"notes"`
	AgentID    *string    `json:"agent_id"`
	ContactID  *string    `json:"contact_id"`
	PropertyID *string    `json:"property_id"`
}

// APIListAppointments returns appointments in a date range. Defaults to
// the next 30 days when no range is given.
func (h *Handlers) APIListAppointments(c *gin.Context) {
	now := time.Now()
	from := now.AddDate(0, 0, -1)
	to := now.AddDate(0, 0, 30)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp"})
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp"})
			return
		}
		to = parsed
	}

	appts, err := h.db.ListAppointments(from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load appointments")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appts})
}

// APIGetAppointment returns a single appointment.
func (h *Handlers) APIGetAppointment(c *gin.Context) {
	appt, err := h.db.GetAppointmentByID(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load appointment")})
		return
	}
	c.JSON(http.StatusOK, appt)
}

// APICreateAppointment creates an appointment. New appointments start in
// the local state and are picked up by the next push run.
func (h *Handlers) APICreateAppointment(c *gin.Context) {
	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	appt := &db.Appointment{
		Title:      req.Title,
		Start:      req.Start,
		End:        req.End,
		Location:   req.Location,
		Notes:      req.Notes,
		AgentID:    req.AgentID,
		ContactID:  req.ContactID,
		PropertyID: req.PropertyID,
	}
	if err := h.db.SaveAppointment(appt, db.SaveSourceUserEdit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to create appointment")})
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// APIUpdateAppointment updates an appointment. Any user edit drops it
// back to the local state so the change is pushed out again.
func (h *Handlers) APIUpdateAppointment(c *gin.Context) {
	appt, err := h.db.GetAppointmentByID(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load appointment")})
		return
	}

	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	appt.Title = req.Title
	appt.Start = req.Start
	appt.End = req.End
	appt.Location = req.Location
	appt.Notes = req.Notes
	appt.AgentID = req.AgentID
	appt.ContactID = req.ContactID
	appt.PropertyID = req.PropertyID
	if err := h.db.SaveAppointment(appt, db.SaveSourceUserEdit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to update appointment")})
		return
	}
	c.JSON(http.StatusOK, appt)
}

// APIDeleteAppointment deletes an appointment.
func (h *Handlers) APIDeleteAppointment(c *gin.Context) {
	if err := h.db.DeleteAppointment(c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to delete appointment")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment deleted"})
}

// --- To-dos ---

type todoRequest struct {
	AgentID string     `json:"agent_id" binding:"required"`
	Title   string     `json:"title" binding:"required"`
	DueAt   *time.Time `json:"due_at"`
	IsDone  bool       `json:"is_done"`
}

// APIListTodos returns the to-do items of an agent.
func (h *Handlers) APIListTodos(c *gin.Context) {
	agentID := c.Query("agent_id")
	if agentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent_id query parameter is required"})
		return
	}
	todos, err := h.db.ListTodosByAgent(agentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load to-do items")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"todos": todos})
}

// APICreateTodo creates a to-do item.
func (h *Handlers) APICreateTodo(c *gin.Context) {
	var req todoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	todo := &db.TodoItem{
		AgentID: req.AgentID,
		Title:   req.Title,
		DueAt:   req.DueAt,
		IsDone:  req.IsDone,
	}
	if err := h.db.CreateTodo(todo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to create to-do item")})
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// APIUpdateTodo updates a to-do item.
func (h *Handlers) APIUpdateTodo(c *gin.Context) {
	todo, err := h.db.GetTodoByID(c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "To-do item not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load to-do item")})
		return
	}

	var req todoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	todo.AgentID = req.AgentID
	todo.Title = req.Title
	todo.DueAt = req.DueAt
	todo.IsDone = req.IsDone
	if err := h.db.UpdateTodo(todo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to update to-do item")})
		return
	}
	c.JSON(http.StatusOK, todo)
}

// APIDeleteTodo deletes a to-do item.
func (h *Handlers) APIDeleteTodo(c *gin.Context) {
	if err := h.db.DeleteTodo(c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "To-do item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to delete to-do item")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "To-do item deleted"})
}

// --- Sync ---

// APITriggerPush queues an outbound push run.
func (h *Handlers) APITriggerPush(c *gin.Context) {
	h.scheduler.TriggerPush()
	c.JSON(http.StatusAccepted, gin.H{"message": "Push queued"})
}

// APITriggerImport queues an inbound import run.
func (h *Handlers) APITriggerImport(c *gin.Context) {
	h.scheduler.TriggerImport()
	c.JSON(http.StatusAccepted, gin.H{"message": "Import queued"})
}

// APISyncLogs returns recent sync log entries.
func (h *Handlers) APISyncLogs(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	logs, err := h.db.GetSyncLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, "Failed to load sync logs")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// APISyncActivity returns in-flight and recently finished sync runs.
func (h *Handlers) APISyncActivity(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.GetAll())
}
