package services

import (
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/taskboard/internal/codec"
	"github.com/dmitrijs2005/taskboard/internal/common"
	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/models"
	"github.com/stretchr/testify/require"
)

func draft(projectID, title string) models.TaskDraft {
	return models.TaskDraft{
		ProjectID: projectID,
		Title:     title,
		Status:    models.StatusTodo,
		Priority:  models.PriorityMedium,
	}
}

func TestCreateProject_OnEmptyStore(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ann", "a@x.com", "pw")
	me := f.session.CurrentUser()

	p, err := f.entities.CreateProject(context.Background(), "Launch")
	require.NoError(t, err)
	require.Equal(t, "project-1", p.ID)
	require.Equal(t, "Launch", p.Name)
	require.Equal(t, me.ID, p.OwnerID)
	require.False(t, p.CreatedAt.IsZero())
	require.Len(t, f.entities.Projects(), 1)

	persisted, err := codec.Decode[[]models.Project](codec.KindProjects, rawKey(t, f.store, projectsKey(me.ID)))
	require.NoError(t, err)
	require.Equal(t, []models.Project{p}, persisted)
}

func TestCreate_WithoutIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.reset()

	_, err := f.entities.CreateProject(ctx, "Launch")
	require.ErrorIs(t, err, common.ErrNotAuthenticated)

	_, err = f.entities.CreateTask(ctx, draft("project-1", "x"))
	require.ErrorIs(t, err, common.ErrNotAuthenticated)

	require.Empty(t, f.entities.Projects())
	require.Empty(t, f.entities.Tasks())
	require.Empty(t, f.store.touched())
}

func TestUpdateAndDelete_WithoutIdentityAreNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.reset()

	done := models.StatusDone
	require.NoError(t, f.entities.UpdateTask(ctx, "task-1", models.TaskPatch{Status: &done}))
	require.NoError(t, f.entities.DeleteTask(ctx, "task-1"))
	require.NoError(t, f.entities.DeleteProject(ctx, "project-1"))
	require.Empty(t, f.store.touched())
}

func TestCreateProject_EmptyName(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ann", "a@x.com", "pw")

	_, err := f.entities.CreateProject(context.Background(), "   ")
	require.ErrorIs(t, err, common.ErrEmptyName)
}

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ann", "a@x.com", "pw")

	d := draft("project-1", "x")
	d.Status = "blocked"
	_, err := f.entities.CreateTask(ctx, d)
	require.ErrorIs(t, err, common.ErrInvalidStatus)

	d = draft("project-1", "x")
	d.Priority = "urgent"
	_, err = f.entities.CreateTask(ctx, d)
	require.ErrorIs(t, err, common.ErrInvalidPriority)

	d = draft("project-1", "x")
	d.DueDate = "next week"
	_, err = f.entities.CreateTask(ctx, d)
	require.ErrorIs(t, err, common.ErrInvalidDueDate)

	_, err = f.entities.CreateTask(ctx, draft("project-1", ""))
	require.ErrorIs(t, err, common.ErrEmptyName)

	require.Empty(t, f.entities.Tasks())
}

func TestCreateTask_DanglingProjectAccepted(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ann", "a@x.com", "pw")

	task, err := f.entities.CreateTask(context.Background(), draft("project-missing", "orphan"))
	require.NoError(t, err)
	require.Equal(t, []models.Task{task}, f.entities.ProjectTasks("project-missing"))
}

func TestProjectTasks_CreationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ann", "a@x.com", "pw")

	a, _ := f.entities.CreateProject(ctx, "A")
	b, _ := f.entities.CreateProject(ctx, "B")

	var want []string
	for _, title := range []string{"one", "two", "three"} {
		_, err := f.entities.CreateTask(ctx, draft(a.ID, title))
		require.NoError(t, err)
		_, err = f.entities.CreateTask(ctx, draft(b.ID, "other "+title))
		require.NoError(t, err)
		want = append(want, title)
	}

	var got []string
	for _, task := range f.entities.ProjectTasks(a.ID) {
		got = append(got, task.Title)
	}
	require.Equal(t, want, got)
}

func TestUpdateTask_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ann", "a@x.com", "pw")

	p, _ := f.entities.CreateProject(ctx, "P")
	d := draft(p.ID, "Write")
	d.Description = "first draft"
	d.DueDate = "2026-11-01"
	orig, err := f.entities.CreateTask(ctx, d)
	require.NoError(t, err)

	high := models.PriorityHigh
	require.NoError(t, f.entities.UpdateTask(ctx, orig.ID, models.TaskPatch{Priority: &high}))

	// reload from the store through a second service bound to the same user
	fresh := NewEntityService(ctx, f.store, f.session, logging.Discard())
	defer fresh.Close()
	got, ok := fresh.Task(orig.ID)
	require.True(t, ok)

	want := orig
	want.Priority = models.PriorityHigh
	require.Equal(t, want, got)
}

func TestUpdateTask_ClearDueDateAndUnknownID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ann", "a@x.com", "pw")

	d := draft("project-1", "x")
	d.DueDate = "2026-11-01"
	task, err := f.entities.CreateTask(ctx, d)
	require.NoError(t, err)

	empty := ""
	require.NoError(t, f.entities.UpdateTask(ctx, task.ID, models.TaskPatch{DueDate: &empty}))
	got, _ := f.entities.Task(task.ID)
	require.Empty(t, got.DueDate)

	before := f.entities.Tasks()
	f.store.reset()
	require.NoError(t, f.entities.UpdateTask(ctx, "task-404", models.TaskPatch{DueDate: &empty}))
	require.Equal(t, before, f.entities.Tasks())
	require.Empty(t, f.store.touched())

	bad := models.Status("archived")
	require.ErrorIs(t, f.entities.UpdateTask(ctx, task.ID, models.TaskPatch{Status: &bad}), common.ErrInvalidStatus)
}

func TestFailedWriteLeavesMemoryUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ann", "a@x.com", "pw")
	p, _ := f.entities.CreateProject(ctx, "P")
	task, _ := f.entities.CreateTask(ctx, draft(p.ID, "x"))

	projects, tasks := f.entities.Projects(), f.entities.Tasks()
	f.store.setFailWrite(true)

	_, err := f.entities.CreateProject(ctx, "Q")
	require.ErrorIs(t, err, errBoom)
	_, err = f.entities.CreateTask(ctx, draft(p.ID, "y"))
	require.ErrorIs(t, err, errBoom)
	done := models.StatusDone
	require.ErrorIs(t, f.entities.UpdateTask(ctx, task.ID, models.TaskPatch{Status: &done}), errBoom)
	require.ErrorIs(t, f.entities.DeleteTask(ctx, task.ID), errBoom)
	require.ErrorIs(t, f.entities.DeleteProject(ctx, p.ID), errBoom)

	require.Equal(t, projects, f.entities.Projects())
	require.Equal(t, tasks, f.entities.Tasks())
}

func TestBind_ReadFailureBlocksWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ann", "a@x.com", "pw")
	me := f.session.CurrentUser()

	var first models.Project
	for i, name := range []string{"A", "B", "C"} {
		p, err := f.entities.CreateProject(ctx, name)
		require.NoError(t, err)
		if i == 0 {
			first = p
		}
	}
	task, err := f.entities.CreateTask(ctx, draft(first.ID, "x"))
	require.NoError(t, err)
	require.NoError(t, f.session.Logout(ctx))

	f.store.failNextGet(projectsKey(me.ID))
	ok, err := f.session.Login(ctx, "a@x.com", []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, f.entities.Projects())

	f.store.reset()
	_, err = f.entities.CreateProject(ctx, "D")
	require.ErrorIs(t, err, errBoom)
	_, err = f.entities.CreateTask(ctx, draft(first.ID, "y"))
	require.ErrorIs(t, err, errBoom)
	done := models.StatusDone
	require.ErrorIs(t, f.entities.UpdateTask(ctx, task.ID, models.TaskPatch{Status: &done}), errBoom)
	require.ErrorIs(t, f.entities.DeleteTask(ctx, task.ID), errBoom)
	require.ErrorIs(t, f.entities.DeleteProject(ctx, first.ID), errBoom)
	require.Empty(t, f.store.touched())

	persisted, err := codec.Decode[[]models.Project](codec.KindProjects, rawKey(t, f.store, projectsKey(me.ID)))
	require.NoError(t, err)
	require.Len(t, persisted, 3)
	tasks, err := codec.Decode[[]models.Task](codec.KindTasks, rawKey(t, f.store, tasksKey(me.ID)))
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	// A clean rebind lifts the block.
	require.NoError(t, f.session.Logout(ctx))
	ok, err = f.session.Login(ctx, "a@x.com", []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, f.entities.Projects(), 3)

	_, err = f.entities.CreateProject(ctx, "D")
	require.NoError(t, err)
	persisted, err = codec.Decode[[]models.Project](codec.KindProjects, rawKey(t, f.store, projectsKey(me.ID)))
	require.NoError(t, err)
	require.Len(t, persisted, 4)
}

func TestDeleteProject_Cascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ann", "a@x.com", "pw")
	me := f.session.CurrentUser()

	p, _ := f.entities.CreateProject(ctx, "P")
	for _, title := range []string{"a", "b", "c"} {
		_, err := f.entities.CreateTask(ctx, draft(p.ID, title))
		require.NoError(t, err)
	}

	require.NoError(t, f.entities.DeleteProject(ctx, p.ID))
	require.Empty(t, f.entities.Projects())
	require.Empty(t, f.entities.ProjectTasks(p.ID))

	tasks, err := codec.Decode[[]models.Task](codec.KindTasks, rawKey(t, f.store, tasksKey(me.ID)))
	require.NoError(t, err)
	for _, task := range tasks {
		require.NotEqual(t, p.ID, task.ProjectID)
	}
	projects, err := codec.Decode[[]models.Project](codec.KindProjects, rawKey(t, f.store, projectsKey(me.ID)))
	require.NoError(t, err)
	require.Empty(t, projects)
}

func TestDeleteProject_KeepsOtherProjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ann", "a@x.com", "pw")

	a, _ := f.entities.CreateProject(ctx, "A")
	b, _ := f.entities.CreateProject(ctx, "B")
	_, _ = f.entities.CreateTask(ctx, draft(a.ID, "a1"))
	keep, _ := f.entities.CreateTask(ctx, draft(b.ID, "b1"))

	require.NoError(t, f.entities.DeleteProject(ctx, a.ID))
	require.Equal(t, []models.Project{b}, f.entities.Projects())
	require.Equal(t, []models.Task{keep}, f.entities.Tasks())

	f.store.reset()
	require.NoError(t, f.entities.DeleteProject(ctx, "project-404"))
	require.Empty(t, f.store.touched())
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ann", "a@x.com", "pw")

	a, _ := f.entities.CreateTask(ctx, draft("p", "a"))
	b, _ := f.entities.CreateTask(ctx, draft("p", "b"))

	require.NoError(t, f.entities.DeleteTask(ctx, a.ID))
	require.Equal(t, []models.Task{b}, f.entities.Tasks())
	_, ok := f.entities.Task(a.ID)
	require.False(t, ok)
}

func TestPartitionIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.signup(t, "Ann", "a@x.com", "pw")
	ann := f.session.CurrentUser()
	ap, _ := f.entities.CreateProject(ctx, "Ann's")
	_, _ = f.entities.CreateTask(ctx, draft(ap.ID, "ann task"))
	require.NoError(t, f.session.Logout(ctx))

	f.store.reset()
	f.signup(t, "Bob", "b@x.com", "pw")
	bob := f.session.CurrentUser()
	require.Empty(t, f.entities.Projects())
	require.Empty(t, f.entities.Tasks())

	bp, err := f.entities.CreateProject(ctx, "Bob's")
	require.NoError(t, err)
	_, err = f.entities.CreateTask(ctx, draft(bp.ID, "bob task"))
	require.NoError(t, err)
	require.NoError(t, f.entities.UpdateTask(ctx, "task-2", models.TaskPatch{}))
	require.NoError(t, f.entities.DeleteProject(ctx, ap.ID))

	for _, key := range f.store.touched() {
		require.False(t, strings.HasSuffix(key, ann.ID), "touched %s while %s was active", key, bob.ID)
	}

	require.NoError(t, f.session.Logout(ctx))
	ok, err := f.session.Login(ctx, "a@x.com", []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []models.Project{ap}, f.entities.Projects())
	require.Len(t, f.entities.Tasks(), 1)
}

func TestBind_MalformedListsReadAsEmpty(t *testing.T) {
	st := &recordingStore{Store: openStore(t)}
	ctx := context.Background()

	f := newFixtureOn(t, st)
	f.signup(t, "Ann", "a@x.com", "pw")
	me := f.session.CurrentUser()
	require.NoError(t, f.session.Logout(ctx))

	require.NoError(t, st.KV().Set(ctx, projectsKey(me.ID), []byte(`{"schemaVersion":9,"data":[]}`)))
	require.NoError(t, st.KV().Set(ctx, tasksKey(me.ID), []byte(`[{"id":1}]`)))

	ok, err := f.session.Login(ctx, "a@x.com", []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, f.entities.Projects())
	require.Empty(t, f.entities.Tasks())
}

func TestBind_LegacyListsLoad(t *testing.T) {
	st := &recordingStore{Store: openStore(t)}
	ctx := context.Background()

	f := newFixtureOn(t, st)
	f.signup(t, "Ann", "a@x.com", "pw")
	me := f.session.CurrentUser()
	require.NoError(t, f.session.Logout(ctx))

	require.NoError(t, st.KV().Set(ctx, projectsKey(me.ID), []byte(
		`[{"id":"project-1","name":"Old","ownerId":"`+me.ID+`","createdAt":"2024-01-01T00:00:00.000Z"}]`)))
	require.NoError(t, st.KV().Set(ctx, tasksKey(me.ID), []byte(
		`[{"id":"task-1","projectId":"project-1","title":"t","description":"","status":"done","priority":"low","dueDate":"","createdAt":"2024-01-01T00:00:00.000Z"}]`)))

	ok, err := f.session.Login(ctx, "a@x.com", []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, f.entities.Projects(), 1)
	require.Len(t, f.entities.ProjectTasks("project-1"), 1)
}

func TestClose_StopsFollowingSession(t *testing.T) {
	f := newFixture(t)
	f.entities.Close()
	f.signup(t, "Ann", "a@x.com", "pw")

	_, err := f.entities.CreateProject(context.Background(), "P")
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
}
