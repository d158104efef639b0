package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	taskdomain "github.com/example/todo-tracker/domain/task"
	userdomain "github.com/example/todo-tracker/domain/user"
	"github.com/example/todo-tracker/modules/ratelimit"
	"github.com/example/todo-tracker/modules/task"
	"github.com/example/todo-tracker/modules/user"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// mockUserPort implements user.UserPort for testing
type mockUserPort struct {
	mockTokenValidator
	registerFunc   func(ctx context.Context, req *user.RegisterRequest) (*user.UserInfo, error)
	loginFunc      func(ctx context.Context, email, password string) (*userdomain.TokenPair, error)
	assignableFunc func(ctx context.Context, excludingID string) ([]user.AssignableUser, error)
	pictureFunc    func(ctx context.Context, userID string) (*user.ProfilePicture, error)
}

func (m *mockUserPort) Register(ctx context.Context, req *user.RegisterRequest) (*user.UserInfo, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserPort) Login(ctx context.Context, email, password string) (*userdomain.TokenPair, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserPort) Refresh(_ context.Context, _ string) (*userdomain.TokenPair, error) {
	return nil, user.ErrInvalidToken
}

func (m *mockUserPort) GetUser(_ context.Context, _ string) (*user.UserInfo, error) {
	return nil, user.ErrUserNotFound
}

func (m *mockUserPort) ListAssignableUsers(ctx context.Context, excludingID string) ([]user.AssignableUser, error) {
	if m.assignableFunc != nil {
		return m.assignableFunc(ctx, excludingID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserPort) GetProfilePicture(ctx context.Context, userID string) (*user.ProfilePicture, error) {
	if m.pictureFunc != nil {
		return m.pictureFunc(ctx, userID)
	}
	return nil, user.ErrUserNotFound
}

// mockTaskPort implements task.TaskPort for testing
type mockTaskPort struct {
	listFunc       func(ctx context.Context, req *task.ListVisibleTasksRequest) (*taskdomain.Page[task.TaskResponse], error)
	authorizeFunc  func(ctx context.Context, id *taskdomain.Identity, taskID int, op taskdomain.Operation) (taskdomain.Decision, error)
	transitionFunc func(ctx context.Context, id *taskdomain.Identity, taskID int, tr taskdomain.Transition) (*task.TaskResponse, error)
	createFunc     func(ctx context.Context, id *taskdomain.Identity, input taskdomain.TaskInput, att *task.AttachmentUpload) (int, error)
	deleteFunc     func(ctx context.Context, id *taskdomain.Identity, taskID int) error
	getFunc        func(ctx context.Context, id *taskdomain.Identity, taskID int) (*task.TaskResponse, error)
	updateFunc     func(ctx context.Context, req *task.UpdateTaskRequest) (*task.TaskResponse, error)
	attachmentFunc func(ctx context.Context, id *taskdomain.Identity, taskID int) (*task.AttachmentContent, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockTaskPort) ListVisibleTasks(ctx context.Context, req *task.ListVisibleTasksRequest) (*taskdomain.Page[task.TaskResponse], error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) AuthorizeMutation(ctx context.Context, id *taskdomain.Identity, taskID int, op taskdomain.Operation) (taskdomain.Decision, error) {
	if m.authorizeFunc != nil {
		return m.authorizeFunc(ctx, id, taskID, op)
	}
	return taskdomain.Deny, errNotImplemented
}

func (m *mockTaskPort) ApplyLifecycleTransition(ctx context.Context, id *taskdomain.Identity, taskID int, tr taskdomain.Transition) (*task.TaskResponse, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, id, taskID, tr)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) CreateTask(ctx context.Context, id *taskdomain.Identity, input taskdomain.TaskInput, att *task.AttachmentUpload) (int, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, id, input, att)
	}
	return 0, errNotImplemented
}

func (m *mockTaskPort) DeleteTask(ctx context.Context, id *taskdomain.Identity, taskID int) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, taskID)
	}
	return errNotImplemented
}

func (m *mockTaskPort) GetTask(ctx context.Context, id *taskdomain.Identity, taskID int) (*task.TaskResponse, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id, taskID)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) UpdateTask(ctx context.Context, req *task.UpdateTaskRequest) (*task.TaskResponse, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) GetAttachment(ctx context.Context, id *taskdomain.Identity, taskID int) (*task.AttachmentContent, error) {
	if m.attachmentFunc != nil {
		return m.attachmentFunc(ctx, id, taskID)
	}
	return nil, errNotImplemented
}

// fakePrefs is an in-memory PageSizeStore.
type fakePrefs struct {
	mu    sync.Mutex
	sizes map[string]int
	err   error
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{sizes: make(map[string]int)}
}

func (f *fakePrefs) GetPageSize(_ context.Context, sessionID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, false, f.err
	}
	size, ok := f.sizes[sessionID]
	return size, ok, nil
}

func (f *fakePrefs) SetPageSize(_ context.Context, sessionID string, size int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sizes[sessionID] = size
	return nil
}

// denyAllower rejects every request.
type denyAllower struct{}

func (denyAllower) Allow(_ context.Context, _ string, limit int, window time.Duration) (*ratelimit.Result, error) {
	return &ratelimit.Result{
		Allowed:    false,
		Limit:      limit,
		ResetAt:    time.Now().Add(window),
		RetryAfter: window,
	}, nil
}

type testEnv struct {
	app   *fiber.App
	users *mockUserPort
	tasks *mockTaskPort
	prefs *fakePrefs
}

func setupTestApp(t *testing.T, limiter ratelimit.Allower) *testEnv {
	t.Helper()
	env := &testEnv{
		users: &mockUserPort{mockTokenValidator: *validTokens()},
		tasks: &mockTaskPort{},
		prefs: newFakePrefs(),
	}
	cfg := Config{
		DefaultPageSize: 3,
		AllowedOrigins:  "*",
		AuthRateLimit:   5,
		AuthRateWindow:  time.Minute,
	}
	h := NewHandlers(env.users, env.tasks, env.prefs, session.New(), cfg.DefaultPageSize)
	env.app = newApp(cfg, h, env.users, limiter, nil)
	return env
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	return resp, body
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer valid-token")
	return req
}

func jsonRequest(method, target string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a form with text fields and an optional file part.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileField, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if fileField != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+filename+`"`)
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart() error = %v", err)
		}
		part.Write(data)
	}
	w.Close()

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	return nil
}

func TestListTasks_AnonymousUsesDefaultPageSize(t *testing.T) {
	env := setupTestApp(t, nil)

	var got *task.ListVisibleTasksRequest
	env.tasks.listFunc = func(_ context.Context, req *task.ListVisibleTasksRequest) (*taskdomain.Page[task.TaskResponse], error) {
		got = req
		return &taskdomain.Page[task.TaskResponse]{Items: []task.TaskResponse{}, PageNumber: 1, PageSize: req.PageSize}, nil
	}

	resp, body := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/tasks?search=milk&sort=title&filter=done&page=2", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if got.Identity != nil {
		t.Errorf("Identity = %+v, want nil", got.Identity)
	}
	if got.PageSize != 3 || got.PageNumber != 2 {
		t.Errorf("PageSize = %d, PageNumber = %d", got.PageSize, got.PageNumber)
	}
	if got.Search != "milk" || got.Sort != "title" || got.Filter != "done" {
		t.Errorf("query not forwarded: %+v", got)
	}
}

func TestListTasks_PageSizeRememberedPerSession(t *testing.T) {
	env := setupTestApp(t, nil)

	var sizes []int
	env.tasks.listFunc = func(_ context.Context, req *task.ListVisibleTasksRequest) (*taskdomain.Page[task.TaskResponse], error) {
		sizes = append(sizes, req.PageSize)
		return &taskdomain.Page[task.TaskResponse]{Items: []task.TaskResponse{}}, nil
	}

	resp, body := doRequest(t, env.app, authed(httptest.NewRequest("GET", "/api/v1/tasks?pageSize=5", nil)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("no session cookie issued")
	}

	req := authed(httptest.NewRequest("GET", "/api/v1/tasks", nil))
	req.AddCookie(cookie)
	doRequest(t, env.app, req)

	// A different browser falls back to the default.
	doRequest(t, env.app, authed(httptest.NewRequest("GET", "/api/v1/tasks", nil)))

	want := []int{5, 5, 3}
	if len(sizes) != len(want) {
		t.Fatalf("sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("request %d: PageSize = %d, want %d", i, sizes[i], want[i])
		}
	}
}

func TestListTasks_PreferenceStoreDownFallsBack(t *testing.T) {
	env := setupTestApp(t, nil)
	env.prefs.err = errors.New("redis unavailable")

	var got int
	env.tasks.listFunc = func(_ context.Context, req *task.ListVisibleTasksRequest) (*taskdomain.Page[task.TaskResponse], error) {
		got = req.PageSize
		return &taskdomain.Page[task.TaskResponse]{Items: []task.TaskResponse{}}, nil
	}

	resp, body := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/tasks", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if got != 3 {
		t.Errorf("PageSize = %d, want default 3", got)
	}
}

func TestListTasks_InvalidPageSize(t *testing.T) {
	env := setupTestApp(t, nil)

	resp, body := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/tasks?pageSize=-1", nil))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"key":"pageSize"`) {
		t.Errorf("body = %s", body)
	}
}

func TestCreateTask_Multipart(t *testing.T) {
	env := setupTestApp(t, nil)

	var gotInput taskdomain.TaskInput
	var gotAtt *task.AttachmentUpload
	var gotID *taskdomain.Identity
	env.tasks.createFunc = func(_ context.Context, id *taskdomain.Identity, input taskdomain.TaskInput, att *task.AttachmentUpload) (int, error) {
		gotID, gotInput, gotAtt = id, input, att
		return 42, nil
	}

	req := multipartRequest(t, "POST", "/api/v1/tasks",
		map[string]string{"title": "Water plants", "description": "balcony", "assigneeId": "user-2", "important": "true"},
		"attachment", "plants.png", "image/png", []byte{0x89, 'P', 'N', 'G'},
	)
	resp, body := doRequest(t, env.app, authed(req))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/v1/tasks/42" {
		t.Errorf("Location = %q", loc)
	}
	if gotID == nil || gotID.ID != "user-123" {
		t.Errorf("identity = %+v", gotID)
	}
	want := taskdomain.TaskInput{Title: "Water plants", Description: "balcony", AssigneeID: "user-2", Important: true}
	if gotInput != want {
		t.Errorf("input = %+v, want %+v", gotInput, want)
	}
	if gotAtt == nil || gotAtt.Filename != "plants.png" || gotAtt.ContentType != "image/png" || len(gotAtt.Data) != 4 {
		t.Errorf("attachment = %+v", gotAtt)
	}
}

func TestCreateTask_RequiresAuth(t *testing.T) {
	env := setupTestApp(t, nil)

	resp, _ := doRequest(t, env.app, jsonRequest("POST", "/api/v1/tasks", TaskForm{Title: "x"}))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCreateTask_ValidationErrors(t *testing.T) {
	env := setupTestApp(t, nil)
	env.tasks.createFunc = func(context.Context, *taskdomain.Identity, taskdomain.TaskInput, *task.AttachmentUpload) (int, error) {
		return 0, &taskdomain.ValidationError{Fields: map[string][]string{
			"title":      {"title is required"},
			"attachment": {"attachment must be an image"},
		}}
	}

	resp, body := doRequest(t, env.app, authed(jsonRequest("POST", "/api/v1/tasks", TaskForm{})))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var got FormErrorsResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Status != "error" || len(got.FormErrors) != 2 {
		t.Fatalf("response = %+v", got)
	}
	if got.FormErrors[0].Key != "attachment" || got.FormErrors[1].Key != "title" {
		t.Errorf("keys not sorted: %+v", got.FormErrors)
	}
}

func TestTaskRoutes_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		label  string
	}{
		{"not found", taskdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"access denied", taskdomain.ErrAccessDenied, http.StatusForbidden, "forbidden"},
		{"persistence", taskdomain.ErrPersistence, http.StatusInternalServerError, "persistence_failure"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestApp(t, nil)
			env.tasks.getFunc = func(context.Context, *taskdomain.Identity, int) (*task.TaskResponse, error) {
				return nil, tt.err
			}

			resp, body := doRequest(t, env.app, authed(httptest.NewRequest("GET", "/api/v1/tasks/7", nil)))
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if !strings.Contains(string(body), `"error":"`+tt.label+`"`) {
				t.Errorf("body = %s, want label %s", body, tt.label)
			}
		})
	}
}

func TestGetTask_InvalidID(t *testing.T) {
	env := setupTestApp(t, nil)
	env.tasks.getFunc = func(context.Context, *taskdomain.Identity, int) (*task.TaskResponse, error) {
		t.Error("task port called for an invalid id")
		return nil, nil
	}

	resp, body := doRequest(t, env.app, authed(httptest.NewRequest("GET", "/api/v1/tasks/abc", nil)))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"bad_request"`) {
		t.Errorf("body = %s", body)
	}
}

func TestUpdateTask_ForwardsForm(t *testing.T) {
	env := setupTestApp(t, nil)

	var got *task.UpdateTaskRequest
	env.tasks.updateFunc = func(_ context.Context, req *task.UpdateTaskRequest) (*task.TaskResponse, error) {
		got = req
		return &task.TaskResponse{ID: req.TaskID, Title: req.Input.Title}, nil
	}

	req := authed(jsonRequest("PUT", "/api/v1/tasks/9", TaskForm{
		Title:            "Renamed",
		ActiveStatus:     "done",
		RemoveAttachment: true,
	}))
	resp, body := doRequest(t, env.app, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if got.TaskID != 9 || got.Input.Title != "Renamed" || got.ActiveStatus != "done" || !got.RemoveAttachment {
		t.Errorf("request = %+v", got)
	}
	if got.Attachment != nil {
		t.Errorf("Attachment = %+v, want nil for JSON body", got.Attachment)
	}
}

func TestDeleteTask(t *testing.T) {
	env := setupTestApp(t, nil)

	var deleted int
	env.tasks.deleteFunc = func(_ context.Context, _ *taskdomain.Identity, taskID int) error {
		deleted = taskID
		return nil
	}

	resp, _ := doRequest(t, env.app, authed(httptest.NewRequest("DELETE", "/api/v1/tasks/4", nil)))
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if deleted != 4 {
		t.Errorf("deleted = %d, want 4", deleted)
	}
}

func TestTransitionRoutes(t *testing.T) {
	tests := []struct {
		path string
		want taskdomain.Transition
	}{
		{"/api/v1/tasks/1/check", taskdomain.TransitionCheck},
		{"/api/v1/tasks/1/uncheck", taskdomain.TransitionUncheck},
		{"/api/v1/tasks/1/important", taskdomain.TransitionMarkImportant},
		{"/api/v1/tasks/1/trivial", taskdomain.TransitionMarkTrivial},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			env := setupTestApp(t, nil)
			var got taskdomain.Transition
			env.tasks.transitionFunc = func(_ context.Context, _ *taskdomain.Identity, _ int, tr taskdomain.Transition) (*task.TaskResponse, error) {
				got = tr
				return &task.TaskResponse{ID: 1}, nil
			}

			resp, body := doRequest(t, env.app, authed(httptest.NewRequest("POST", tt.path, nil)))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
			}
			if got != tt.want {
				t.Errorf("transition = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPermissions(t *testing.T) {
	env := setupTestApp(t, nil)
	env.tasks.authorizeFunc = func(_ context.Context, id *taskdomain.Identity, _ int, op taskdomain.Operation) (taskdomain.Decision, error) {
		if id != nil && op == taskdomain.OpUpdate {
			return taskdomain.Permit, nil
		}
		return taskdomain.Deny, nil
	}

	resp, body := doRequest(t, env.app, authed(httptest.NewRequest("GET", "/api/v1/tasks/3/permissions", nil)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var got PermissionsResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got != (PermissionsResponse{TaskID: 3, Update: "permit", Delete: "deny"}) {
		t.Errorf("permissions = %+v", got)
	}

	// Anonymous callers are allowed to ask and are denied everything.
	_, body = doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/tasks/3/permissions", nil))
	if !strings.Contains(string(body), `"update":"deny"`) {
		t.Errorf("anonymous body = %s", body)
	}
}

func TestAttachmentDownload(t *testing.T) {
	env := setupTestApp(t, nil)
	env.tasks.attachmentFunc = func(context.Context, *taskdomain.Identity, int) (*task.AttachmentContent, error) {
		return &task.AttachmentContent{Filename: "plants.png", ContentType: "image/png", Data: []byte("png-bytes")}, nil
	}

	resp, body := doRequest(t, env.app, authed(httptest.NewRequest("GET", "/api/v1/tasks/1/attachment", nil)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `inline; filename="plants.png"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if string(body) != "png-bytes" {
		t.Errorf("body = %q", body)
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"created", nil, http.StatusCreated},
		{"duplicate email", user.ErrUserExists, http.StatusConflict},
		{"form errors", &user.FormError{Fields: map[string][]string{"email": {"email is invalid"}}}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestApp(t, nil)
			var got *user.RegisterRequest
			env.users.registerFunc = func(_ context.Context, req *user.RegisterRequest) (*user.UserInfo, error) {
				got = req
				if tt.err != nil {
					return nil, tt.err
				}
				return &user.UserInfo{ID: "new", Email: req.Email}, nil
			}

			req := multipartRequest(t, "POST", "/api/v1/auth/register",
				map[string]string{
					"firstName": "Anna", "lastName": "Muster", "email": "anna@example.com",
					"password": "secret", "confirmPassword": "secret",
				},
				"profilePicture", "me.jpg", "image/jpeg", []byte("jpeg"),
			)
			resp, body := doRequest(t, env.app, req)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", resp.StatusCode, tt.status, body)
			}
			if got == nil || got.FirstName != "Anna" || got.ProfilePictureType != "image/jpeg" || string(got.ProfilePicture) != "jpeg" {
				t.Errorf("register request = %+v", got)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := setupTestApp(t, nil)
	env.users.loginFunc = func(_ context.Context, email, password string) (*userdomain.TokenPair, error) {
		if email == "anna@example.com" && password == "secret" {
			return &userdomain.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}, nil
		}
		return nil, user.ErrInvalidCredentials
	}

	resp, body := doRequest(t, env.app, jsonRequest("POST", "/api/v1/auth/login", LoginRequest{Email: "anna@example.com", Password: "secret"}))
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"access_token":"a"`) {
		t.Errorf("status = %d, body = %s", resp.StatusCode, body)
	}

	resp, _ = doRequest(t, env.app, jsonRequest("POST", "/api/v1/auth/login", LoginRequest{Email: "anna@example.com", Password: "wrong"}))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	resp, _ = doRequest(t, env.app, jsonRequest("POST", "/api/v1/auth/login", LoginRequest{}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAuthRoutes_RateLimited(t *testing.T) {
	env := setupTestApp(t, denyAllower{})
	env.users.loginFunc = func(context.Context, string, string) (*userdomain.TokenPair, error) {
		t.Error("login reached despite rate limit")
		return nil, nil
	}

	resp, _ := doRequest(t, env.app, jsonRequest("POST", "/api/v1/auth/login", LoginRequest{Email: "a@b.c", Password: "x"}))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestAssignableUsers(t *testing.T) {
	env := setupTestApp(t, nil)
	var excluded string
	env.users.assignableFunc = func(_ context.Context, excludingID string) ([]user.AssignableUser, error) {
		excluded = excludingID
		return []user.AssignableUser{{ID: "user-2", DisplayName: "Ben Beispiel"}}, nil
	}

	resp, body := doRequest(t, env.app, authed(httptest.NewRequest("GET", "/api/v1/users/assignable", nil)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if excluded != "user-123" {
		t.Errorf("excluded = %q, want caller", excluded)
	}
	if !strings.Contains(string(body), `"Ben Beispiel"`) {
		t.Errorf("body = %s", body)
	}
}

func TestProfilePicture(t *testing.T) {
	env := setupTestApp(t, nil)
	env.users.pictureFunc = func(_ context.Context, userID string) (*user.ProfilePicture, error) {
		if userID != "user-2" {
			return nil, user.ErrUserNotFound
		}
		return &user.ProfilePicture{ContentType: "image/jpeg", Data: []byte("jpeg")}, nil
	}

	resp, body := doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/users/user-2/picture", nil))
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" || string(body) != "jpeg" {
		t.Errorf("status = %d, content type = %q, body = %q", resp.StatusCode, resp.Header.Get("Content-Type"), body)
	}

	resp, _ = doRequest(t, env.app, httptest.NewRequest("GET", "/api/v1/users/ghost/picture", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestApp(t, nil)
	resp, body := doRequest(t, env.app, httptest.NewRequest("GET", "/health", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"healthy"`) {
		t.Errorf("status = %d, body = %s", resp.StatusCode, body)
	}
}
