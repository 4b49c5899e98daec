package tasks_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	uierrors "github.com/dalemusser/hearth/internal/app/features/errors"
	"github.com/dalemusser/hearth/internal/app/features/tasks"
	taskstore "github.com/dalemusser/hearth/internal/app/store/tasks"
	userstore "github.com/dalemusser/hearth/internal/app/store/users"
	"github.com/dalemusser/hearth/internal/app/system/indexes"
	"github.com/dalemusser/hearth/internal/app/system/metrics"
	"github.com/dalemusser/hearth/internal/domain/models"
	"github.com/dalemusser/hearth/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	db         *mongo.Database
	router     chi.Router
	fx         *testutil.Fixtures
	admin      models.User
	member     models.User
	other      models.User
	adminAuth  *http.Cookie
	memberAuth *http.Cookie
	otherAuth  *http.Cookie
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	logger := zap.NewNop()
	sm := testutil.NewSessionManager(t, userstore.NewFetcher(db))
	h := tasks.NewHandler(db, uierrors.NewErrorLogger(logger, false), nil, metrics.New(), logger)

	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateAdmin(ctx, "Ada Admin", "ada@example.com")
	member := fx.CreateUser(ctx, "Max Member", "max@example.com", 0)
	other := fx.CreateUser(ctx, "Olive Other", "olive@example.com", 0)
	return &env{
		db:         db,
		router:     tasks.Routes(h, sm),
		fx:         fx,
		admin:      admin,
		member:     member,
		other:      other,
		adminAuth:  testutil.SessionCookie(t, sm, testutil.IdentityOf(admin)),
		memberAuth: testutil.SessionCookie(t, sm, testutil.IdentityOf(member)),
		otherAuth:  testutil.SessionCookie(t, sm, testutil.IdentityOf(other)),
	}
}

func (e *env) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.Serve(t, e.router, method, path, body, cookie)
}

func (e *env) balance(t *testing.T, id primitive.ObjectID) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := userstore.New(e.db).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return u.AccountBalance
}

func TestRoutes_RequireSession(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/", "/mine"} {
		if rec := e.do(t, "GET", path, nil, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s anonymous = %d, want 401", path, rec.Code)
		}
	}
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	valid := map[string]any{
		"name":        "Take out trash",
		"description": "Bins go out Tuesday night",
		"dueDate":     "2025-06-30",
		"points":      15,
		"assignedTo":  e.member.ID.Hex(),
	}

	if rec := e.do(t, "POST", "/", valid, e.memberAuth); rec.Code != http.StatusForbidden {
		t.Errorf("member create = %d, want 403", rec.Code)
	}

	rec := e.do(t, "POST", "/", valid, e.adminAuth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create = %d: %s", rec.Code, rec.Body)
	}
	var got models.TaskView
	testutil.DecodeJSON(t, rec, &got)
	if got.AssignedTo != "Max Member" || got.AssignedToID != e.member.ID.Hex() {
		t.Errorf("assignee = %q (%s)", got.AssignedTo, got.AssignedToID)
	}
	if got.Points != 15 || got.IsCompleted {
		t.Errorf("created = %+v", got)
	}
	if want := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC); !got.DueDate.Equal(want) {
		t.Errorf("due = %v, want %v", got.DueDate, want)
	}

	rec = e.do(t, "POST", "/", map[string]any{"name": "Sweep", "dueDate": "2025-07-01", "assignedTo": "Unassigned"}, e.adminAuth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unassigned create = %d: %s", rec.Code, rec.Body)
	}
	testutil.DecodeJSON(t, rec, &got)
	if got.AssignedTo != models.Unassigned || got.AssignedToID != "" {
		t.Errorf("unassigned task = %q (%s)", got.AssignedTo, got.AssignedToID)
	}
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)
	long := make([]byte, models.TaskDescriptionMax+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"dueDate": "2025-06-30"}},
		{"missing due date", map[string]any{"name": "Dishes"}},
		{"bad due date", map[string]any{"name": "Dishes", "dueDate": "next week"}},
		{"negative points", map[string]any{"name": "Dishes", "dueDate": "2025-06-30", "points": -1}},
		{"long description", map[string]any{"name": "Dishes", "dueDate": "2025-06-30", "description": string(long)}},
		{"malformed assignee", map[string]any{"name": "Dishes", "dueDate": "2025-06-30", "assignedTo": "nobody"}},
		{"unknown assignee", map[string]any{"name": "Dishes", "dueDate": "2025-06-30", "assignedTo": primitive.NewObjectID().Hex()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.do(t, "POST", "/", tt.body, e.adminAuth); rec.Code != http.StatusBadRequest {
				t.Errorf("code = %d, want 400: %s", rec.Code, rec.Body)
			}
		})
	}
	if rec := e.do(t, "POST", "/", `{"name":"Dishes","bogus":1}`, e.adminAuth); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field = %d, want 400", rec.Code)
	}
}

func TestListAndMine(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fx.CreateTask(ctx, "Mine", 5, &e.member.ID, e.admin.ID)
	e.fx.CreateTask(ctx, "Theirs", 5, &e.other.ID, e.admin.ID)
	e.fx.CreateTask(ctx, "Nobody's", 5, nil, e.admin.ID)

	rec := e.do(t, "GET", "/", nil, e.memberAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	var all []models.TaskView
	testutil.DecodeJSON(t, rec, &all)
	if len(all) != 3 {
		t.Fatalf("list = %d tasks, want 3", len(all))
	}
	names := map[string]string{}
	for _, v := range all {
		names[v.Name] = v.AssignedTo
	}
	if names["Mine"] != "Max Member" || names["Nobody's"] != models.Unassigned {
		t.Errorf("assignee names = %v", names)
	}

	rec = e.do(t, "GET", "/mine", nil, e.memberAuth)
	var mine []models.TaskView
	testutil.DecodeJSON(t, rec, &mine)
	if len(mine) != 1 || mine[0].Name != "Mine" {
		t.Errorf("mine = %+v", mine)
	}
}

func TestGet(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := e.fx.CreateTask(ctx, "Dishes", 5, &e.member.ID, e.admin.ID)

	if rec := e.do(t, "GET", "/"+task.ID.Hex(), nil, e.otherAuth); rec.Code != http.StatusOK {
		t.Errorf("get = %d", rec.Code)
	}
	if rec := e.do(t, "GET", "/"+primitive.NewObjectID().Hex(), nil, e.otherAuth); rec.Code != http.StatusNotFound {
		t.Errorf("missing = %d, want 404", rec.Code)
	}
	if rec := e.do(t, "GET", "/not-an-id", nil, e.otherAuth); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed = %d, want 400", rec.Code)
	}
}

func TestUpdate(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := e.fx.CreateTask(ctx, "Dishes", 5, &e.member.ID, e.admin.ID)
	path := "/" + task.ID.Hex()

	if rec := e.do(t, "PUT", path, map[string]any{"points": 9}, e.memberAuth); rec.Code != http.StatusForbidden {
		t.Errorf("member update = %d, want 403", rec.Code)
	}

	rec := e.do(t, "PUT", path, map[string]any{"points": 9, "assignedTo": e.other.ID.Hex()}, e.adminAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", rec.Code, rec.Body)
	}
	var got models.TaskView
	testutil.DecodeJSON(t, rec, &got)
	if got.Points != 9 || got.AssignedTo != "Olive Other" || got.Name != "Dishes" {
		t.Errorf("updated = %+v", got)
	}

	rec = e.do(t, "PUT", path, map[string]any{"assignedTo": ""}, e.adminAuth)
	testutil.DecodeJSON(t, rec, &got)
	if got.AssignedTo != models.Unassigned {
		t.Errorf("after unassign = %q", got.AssignedTo)
	}

	bad := []map[string]any{
		{"name": "   "},
		{"points": -3},
		{"dueDate": "soon"},
		{"assignedTo": primitive.NewObjectID().Hex()},
	}
	for _, b := range bad {
		if rec := e.do(t, "PUT", path, b, e.adminAuth); rec.Code != http.StatusBadRequest {
			t.Errorf("update %v = %d, want 400", b, rec.Code)
		}
	}
	if rec := e.do(t, "PUT", "/"+primitive.NewObjectID().Hex(), map[string]any{"points": 1}, e.adminAuth); rec.Code != http.StatusNotFound {
		t.Errorf("missing = %d, want 404", rec.Code)
	}
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := e.fx.CreateTask(ctx, "Dishes", 5, nil, e.admin.ID)
	path := "/" + task.ID.Hex()

	if rec := e.do(t, "DELETE", path, nil, e.memberAuth); rec.Code != http.StatusForbidden {
		t.Errorf("member delete = %d, want 403", rec.Code)
	}
	if rec := e.do(t, "DELETE", path, nil, e.adminAuth); rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := e.do(t, "DELETE", path, nil, e.adminAuth); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestComplete_AwardsAssignee(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := e.fx.CreateTask(ctx, "Dishes", 20, &e.member.ID, e.admin.ID)
	path := "/" + task.ID.Hex() + "/complete"

	if rec := e.do(t, "POST", path, nil, e.otherAuth); rec.Code != http.StatusForbidden {
		t.Errorf("non-assignee complete = %d, want 403", rec.Code)
	}

	rec := e.do(t, "POST", path, nil, e.memberAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete = %d: %s", rec.Code, rec.Body)
	}
	var got models.TaskView
	testutil.DecodeJSON(t, rec, &got)
	if !got.IsCompleted || got.CompletedAt == nil {
		t.Errorf("completed = %+v", got)
	}
	if b := e.balance(t, e.member.ID); b != 20 {
		t.Errorf("balance = %d, want 20", b)
	}

	if rec := e.do(t, "POST", path, nil, e.memberAuth); rec.Code != http.StatusConflict {
		t.Errorf("second complete = %d, want 409", rec.Code)
	}
	if b := e.balance(t, e.member.ID); b != 20 {
		t.Errorf("balance after repeat = %d, want 20", b)
	}
}

func TestComplete_AdminCreditsAssignee(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := e.fx.CreateTask(ctx, "Laundry", 7, &e.member.ID, e.admin.ID)

	if rec := e.do(t, "POST", "/"+task.ID.Hex()+"/complete", nil, e.adminAuth); rec.Code != http.StatusOK {
		t.Fatalf("admin complete = %d", rec.Code)
	}
	if b := e.balance(t, e.member.ID); b != 7 {
		t.Errorf("assignee balance = %d, want 7", b)
	}
	if b := e.balance(t, e.admin.ID); b != 0 {
		t.Errorf("admin balance = %d, want 0", b)
	}
}

func TestComplete_Unassigned(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := e.fx.CreateTask(ctx, "Floating", 5, nil, e.admin.ID)
	path := "/" + task.ID.Hex() + "/complete"

	if rec := e.do(t, "POST", path, nil, e.memberAuth); rec.Code != http.StatusForbidden {
		t.Errorf("member complete unassigned = %d, want 403", rec.Code)
	}
	if rec := e.do(t, "POST", path, nil, e.adminAuth); rec.Code != http.StatusBadRequest {
		t.Errorf("admin complete unassigned = %d, want 400", rec.Code)
	}
	if rec := e.do(t, "POST", "/"+primitive.NewObjectID().Hex()+"/complete", nil, e.adminAuth); rec.Code != http.StatusNotFound {
		t.Errorf("missing = %d, want 404", rec.Code)
	}
}

func TestComplete_ConcurrentSingleAward(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := e.fx.CreateTask(ctx, "Race", 10, &e.member.ID, e.admin.ID)
	path := "/" + task.ID.Hex() + "/complete"

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = e.do(t, "POST", path, nil, e.memberAuth).Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected code %d", c)
		}
	}
	if ok != 1 {
		t.Errorf("successful completes = %d, want 1", ok)
	}
	if b := e.balance(t, e.member.ID); b != 10 {
		t.Errorf("balance = %d, want 10", b)
	}
}

func TestVerify(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := e.fx.CreateTask(ctx, "Mow", 5, &e.member.ID, e.admin.ID)
	path := "/" + task.ID.Hex() + "/verify"

	if rec := e.do(t, "POST", path, nil, e.adminAuth); rec.Code != http.StatusBadRequest {
		t.Errorf("verify open task = %d, want 400", rec.Code)
	}
	if rec := e.do(t, "POST", "/"+task.ID.Hex()+"/complete", nil, e.memberAuth); rec.Code != http.StatusOK {
		t.Fatalf("complete = %d", rec.Code)
	}
	if rec := e.do(t, "POST", path, nil, e.memberAuth); rec.Code != http.StatusForbidden {
		t.Errorf("member verify = %d, want 403", rec.Code)
	}
	rec := e.do(t, "POST", path, nil, e.adminAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify = %d: %s", rec.Code, rec.Body)
	}
	var got models.TaskView
	testutil.DecodeJSON(t, rec, &got)
	if !got.IsVerified {
		t.Error("task not verified")
	}
	if rec := e.do(t, "POST", path, nil, e.adminAuth); rec.Code != http.StatusConflict {
		t.Errorf("second verify = %d, want 409", rec.Code)
	}
	if b := e.balance(t, e.member.ID); b != 5 {
		t.Errorf("verify changed balance: %d", b)
	}
}

func TestReorder(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := e.fx.CreateTask(ctx, "A", 1, nil, e.admin.ID)
	b := e.fx.CreateTask(ctx, "B", 1, nil, e.admin.ID)
	c := e.fx.CreateTask(ctx, "C", 1, nil, e.admin.ID)

	body := map[string]any{"ids": []string{c.ID.Hex(), a.ID.Hex(), b.ID.Hex()}}
	if rec := e.do(t, "POST", "/reorder", body, e.memberAuth); rec.Code != http.StatusForbidden {
		t.Errorf("member reorder = %d, want 403", rec.Code)
	}
	if rec := e.do(t, "POST", "/reorder", body, e.adminAuth); rec.Code != http.StatusOK {
		t.Fatalf("reorder = %d: %s", rec.Code, rec.Body)
	}

	ts, err := taskstore.New(e.db, zap.NewNop()).List(ctx, taskstore.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	prio := map[string]int{}
	for _, task := range ts {
		prio[task.Name] = task.Priority
	}
	if prio["C"] != 0 || prio["A"] != 1 || prio["B"] != 2 {
		t.Errorf("priorities = %v", prio)
	}

	dup := map[string]any{"ids": []string{a.ID.Hex(), a.ID.Hex()}}
	if rec := e.do(t, "POST", "/reorder", dup, e.adminAuth); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate ids = %d, want 400", rec.Code)
	}
	if rec := e.do(t, "POST", "/reorder", map[string]any{"ids": []string{"nope"}}, e.adminAuth); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed ids = %d, want 400", rec.Code)
	}
}
