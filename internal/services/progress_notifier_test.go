package services

import (
	"strings"
	"testing"
	"time"

	types "github.com/yungbote/progress-reconciler/internal/domain"
)

func TestObjectIDDeterministic(t *testing.T) {
	if ObjectID("b1", "u1") != ObjectID("b1", "u1") {
		t.Fatalf("ObjectID not stable")
	}
	if ObjectID("b1", "u1") == ObjectID("b1", "u2") {
		t.Fatalf("ObjectID collides across users")
	}
}

func TestBuildEnrolmentNotification(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := []*types.ProgressRecord{
		{ContentID: "c1", Status: types.StatusCompleted},
		nil,
		{ContentID: "c2", Status: types.StatusInProgress},
	}
	n := BuildEnrolmentNotification("u1", "b1", "course-1", rows, now)
	if n.EID != NotificationEID || n.Ets != now.UnixMilli() {
		t.Fatalf("header: got=%+v", n)
	}
	if !strings.HasPrefix(n.MID, "LP.") {
		t.Fatalf("mid: got=%s", n.MID)
	}
	if n.Object.Type != "CourseBatchEnrolment" || n.Object.ID != ObjectID("b1", "u1") {
		t.Fatalf("object: got=%+v", n.Object)
	}
	if len(n.EData.Contents) != 2 || n.EData.Contents[0] != (ContentState{ContentID: "c1", Status: 2}) {
		t.Fatalf("contents: got=%+v", n.EData.Contents)
	}
	if n.EData.Iteration != 1 || n.EData.Action != ActionEnrolmentUpdate {
		t.Fatalf("edata: got=%+v", n.EData)
	}
}
