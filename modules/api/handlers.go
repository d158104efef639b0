package api

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	taskdomain "github.com/example/todo-tracker/domain/task"
	"github.com/example/todo-tracker/modules/preferences"
	"github.com/example/todo-tracker/modules/task"
	"github.com/example/todo-tracker/modules/user"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	users           user.UserPort
	tasks           task.TaskPort
	prefs           preferences.PageSizeStore
	sessions        *session.Store
	defaultPageSize int
}

// NewHandlers creates a new Handlers instance. prefs and sessions may be nil,
// in which case every listing uses defaultPageSize unless the request says
// otherwise.
func NewHandlers(users user.UserPort, tasks task.TaskPort, prefs preferences.PageSizeStore, sessions *session.Store, defaultPageSize int) *Handlers {
	return &Handlers{
		users:           users,
		tasks:           tasks,
		prefs:           prefs,
		sessions:        sessions,
		defaultPageSize: defaultPageSize,
	}
}

// upload is a file part read from a multipart request.
type upload struct {
	filename    string
	contentType string
	data        []byte
}

// readUpload returns the file sent under field, or nil when the request is
// not multipart or carries no such file. At most limit+1 bytes are read so
// that oversized files still fail validation.
func readUpload(c *fiber.Ctx, field string, limit int64) (*upload, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}

	header := files[0]
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	return &upload{
		filename:    header.Filename,
		contentType: header.Header.Get("Content-Type"),
		data:        data,
	}, nil
}

func taskIDParam(c *fiber.Ctx) (int, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Task id must be a positive number")
	}
	return id, nil
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	picture, err := readUpload(c, "profilePicture", user.MaxProfilePictureBytes)
	if err != nil {
		return badRequest(c, "Invalid profile picture upload")
	}

	regReq := user.RegisterRequest{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
	if picture != nil {
		regReq.ProfilePicture = picture.data
		regReq.ProfilePictureType = picture.contentType
	}

	info, err := h.users.Register(c.UserContext(), &regReq)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(info)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	tokens, err := h.users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tokens)
}

// Refresh handles token refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	tokens, err := h.users.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tokens)
}

// AssignableUsers lists every user except the caller.
func (h *Handlers) AssignableUsers(c *fiber.Ctx) error {
	users, err := h.users.ListAssignableUsers(c.UserContext(), claimsFrom(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// ProfilePicture serves a user's picture bytes.
func (h *Handlers) ProfilePicture(c *fiber.Ctx) error {
	picture, err := h.users.GetProfilePicture(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, picture.ContentType)
	return c.Send(picture.Data)
}

// sessionID returns the browser session id, creating the session cookie on
// first use. It returns "" when sessions are disabled or broken.
func (h *Handlers) sessionID(c *fiber.Ctx) string {
	if h.sessions == nil {
		return ""
	}
	sess, err := h.sessions.Get(c)
	if err != nil {
		log.Printf("[api] Warning: session lookup failed: %v", err)
		return ""
	}
	id := sess.ID()
	if !sess.Fresh() {
		return id
	}
	sess.Set("started", time.Now().Unix())
	if err := sess.Save(); err != nil {
		log.Printf("[api] Warning: session save failed: %v", err)
	}
	return id
}

// resolvePageSize picks the page size of a listing: an explicit pageSize
// query wins and is remembered for the session, then the remembered value,
// then the default.
func (h *Handlers) resolvePageSize(c *fiber.Ctx) (int, error) {
	sessionID := h.sessionID(c)

	if raw := c.Query("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return 0, taskdomain.NewValidationError("pageSize", "must be a non-negative number")
		}
		if sessionID != "" && h.prefs != nil {
			if err := h.prefs.SetPageSize(c.UserContext(), sessionID, size); err != nil {
				log.Printf("[api] Warning: failed to remember page size: %v", err)
			}
		}
		return size, nil
	}

	if sessionID != "" && h.prefs != nil {
		size, ok, err := h.prefs.GetPageSize(c.UserContext(), sessionID)
		if err != nil {
			log.Printf("[api] Warning: page size lookup failed, using default: %v", err)
		} else if ok {
			return size, nil
		}
	}
	return h.defaultPageSize, nil
}

// ListTasks returns one page of the caller's visible tasks. Anonymous
// callers get an empty page.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	pageSize, err := h.resolvePageSize(c)
	if err != nil {
		return writeError(c, err)
	}

	page, err := h.tasks.ListVisibleTasks(c.UserContext(), &task.ListVisibleTasksRequest{
		Identity:   identityFrom(c),
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
		Filter:     c.Query("filter"),
		PageNumber: c.QueryInt("page", 1),
		PageSize:   pageSize,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

func parseTaskForm(c *fiber.Ctx) (TaskForm, *task.AttachmentUpload, error) {
	var form TaskForm
	if err := c.BodyParser(&form); err != nil {
		return form, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	file, err := readUpload(c, taskdomain.AttachmentField, taskdomain.MaxAttachmentBytes)
	if err != nil {
		return form, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid attachment upload")
	}
	if file == nil {
		return form, nil, nil
	}
	return form, &task.AttachmentUpload{
		Filename:    file.filename,
		ContentType: file.contentType,
		Data:        file.data,
	}, nil
}

func (f TaskForm) input() taskdomain.TaskInput {
	return taskdomain.TaskInput{
		Title:       f.Title,
		Description: f.Description,
		AssigneeID:  f.AssigneeID,
		Important:   f.Important,
	}
}

// CreateTask creates a task owned by the caller.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	form, att, err := parseTaskForm(c)
	if err != nil {
		return err
	}

	id, err := h.tasks.CreateTask(c.UserContext(), identityFrom(c), form.input(), att)
	if err != nil {
		return writeError(c, err)
	}
	c.Location(fmt.Sprintf("/api/v1/tasks/%d", id))
	return c.Status(fiber.StatusCreated).JSON(CreatedResponse{ID: id})
}

// GetTask returns a task the caller may see.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}
	t, err := h.tasks.GetTask(c.UserContext(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(t)
}

// UpdateTask edits a task owned by the caller.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}
	form, att, err := parseTaskForm(c)
	if err != nil {
		return err
	}

	t, err := h.tasks.UpdateTask(c.UserContext(), &task.UpdateTaskRequest{
		Identity:         identityFrom(c),
		TaskID:           id,
		Input:            form.input(),
		ActiveStatus:     form.ActiveStatus,
		Attachment:       att,
		RemoveAttachment: form.RemoveAttachment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(t)
}

// DeleteTask removes a task owned by the caller.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}
	if err := h.tasks.DeleteTask(c.UserContext(), identityFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Transition returns a handler applying tr to the task in the path.
func (h *Handlers) Transition(tr taskdomain.Transition) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := taskIDParam(c)
		if err != nil {
			return err
		}
		t, err := h.tasks.ApplyLifecycleTransition(c.UserContext(), identityFrom(c), id, tr)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(t)
	}
}

// Permissions reports the update and delete decisions for the caller.
func (h *Handlers) Permissions(c *fiber.Ctx) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}
	identity := identityFrom(c)

	update, err := h.tasks.AuthorizeMutation(c.UserContext(), identity, id, taskdomain.OpUpdate)
	if err != nil {
		return writeError(c, err)
	}
	del, err := h.tasks.AuthorizeMutation(c.UserContext(), identity, id, taskdomain.OpDelete)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(PermissionsResponse{
		TaskID: id,
		Update: update.String(),
		Delete: del.String(),
	})
}

// Attachment streams the attachment of a task the caller may see.
func (h *Handlers) Attachment(c *fiber.Ctx) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}
	content, err := h.tasks.GetAttachment(c.UserContext(), identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, content.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", content.Filename))
	return c.Send(content.Data)
}
