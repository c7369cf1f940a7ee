package handlers

import (
	"log"
	"net/http"

	"smart-todo-api/pkg/auth"
	"smart-todo-api/pkg/errs"
	"smart-todo-api/pkg/models"
	"smart-todo-api/pkg/pages"
	"smart-todo-api/pkg/tasks"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

const msgInvalidRequest = "invalid request"

// Handlers contains all HTTP handlers
type Handlers struct {
	accounts *auth.Accounts
	resolver *auth.Resolver
	tasks    *tasks.Repository
}

// New creates a new Handlers instance
func New(accounts *auth.Accounts, resolver *auth.Resolver, repo *tasks.Repository) *Handlers {
	return &Handlers{
		accounts: accounts,
		resolver: resolver,
		tasks:    repo,
	}
}

// apiRoutes is shown on the index page.
var apiRoutes = []pages.Route{
	{Method: http.MethodPost, Path: "/register", Description: "Create an account (JSON username, password)"},
	{Method: http.MethodPost, Path: "/token", Description: "Exchange form username, password for a bearer token"},
	{Method: http.MethodPost, Path: "/tasks", Auth: true, Description: "Create a task"},
	{Method: http.MethodGet, Path: "/tasks", Auth: true, Description: "List your tasks"},
	{Method: http.MethodPut, Path: "/tasks/{id}", Auth: true, Description: "Update fields of a task"},
	{Method: http.MethodDelete, Path: "/tasks/{id}", Auth: true, Description: "Delete a task"},
}

// Register mounts all routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Index)
	r.GET("/healthz", h.Health)

	r.POST("/register", h.RegisterUser)
	r.POST("/token", h.Login)

	protected := r.Group("/tasks", h.resolver.Middleware())
	{
		protected.POST("", h.CreateTask)
		protected.GET("", h.ListTasks)
		protected.PUT("/:id", h.UpdateTask)
		protected.DELETE("/:id", h.DeleteTask)
	}
}

// respondError writes err using its public status and message. Causes of
// internal errors are logged, never returned.
func respondError(c *gin.Context, err error) {
	status, msg := errs.Public(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": msg})
}

// currentUser returns the authenticated user or writes a 401.
func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.MsgCouldNotValidate})
	}
	return user, ok
}

// ============== Page Handlers ==============

// Index renders the API overview page
func (h *Handlers) Index(c *gin.Context) {
	render(c, http.StatusOK, pages.Index("Smart ToDo API", apiRoutes))
}

// Health reports liveness
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// render renders a templ component
func render(c *gin.Context, status int, template templ.Component) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := template.Render(c.Request.Context(), c.Writer); err != nil {
		log.Printf("render %s: %v", c.FullPath(), err)
	}
}

// ============== Auth Handlers ==============

// RegisterUser creates an account
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		return
	}

	if _, err := h.accounts.Register(c.Request.Context(), *req.Username, *req.Password); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.MessageResponse{Message: auth.MsgRegistered})
}

// Login exchanges form credentials for an access token
func (h *Handlers) Login(c *gin.Context) {
	var form models.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		return
	}

	resp, err := h.accounts.Login(c.Request.Context(), *form.Username, *form.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ============== Task Handlers ==============

// CreateTask creates a task owned by the caller
func (h *Handlers) CreateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), user, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task.ToResponse())
}

// ListTasks returns the caller's tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.tasks.List(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]models.TaskResponse, 0, len(list))
	for _, task := range list {
		result = append(result, task.ToResponse())
	}
	c.JSON(http.StatusOK, result)
}

// UpdateTask applies a partial update to one of the caller's tasks
func (h *Handlers) UpdateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), user, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task.ToResponse())
}

// DeleteTask deletes one of the caller's tasks
func (h *Handlers) DeleteTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Task deleted"})
}
