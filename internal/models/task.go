package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "NOT_STARTED"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusBlocked    TaskStatus = "BLOCKED"
	StatusCompleted  TaskStatus = "COMPLETED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusBlocked, StatusCompleted:
		return true
	}
	return false
}

// Task is a unit of work inside a project.
type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Description string             `bson:"description" json:"description"`
	DueDate     time.Time          `bson:"dueDate" json:"dueDate"`
	Status      TaskStatus         `bson:"status" json:"status"`
	OwnerID     primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	ProjectID   primitive.ObjectID `bson:"projectId" json:"projectId"`
	AssigneeID  primitive.ObjectID `bson:"assigneeId" json:"assigneeId"`
	Attachments []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Attachment is file metadata; the bytes live in the object store under Key.
type Attachment struct {
	ID          string             `bson:"id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	ContentType string             `bson:"contentType" json:"contentType"`
	Size        int64              `bson:"size" json:"size"`
	Key         string             `bson:"key" json:"-"`
	UploadedBy  primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

// Attachment returns the attachment with the given id, or nil.
func (t *Task) Attachment(id string) *Attachment {
	for i := range t.Attachments {
		if t.Attachments[i].ID == id {
			return &t.Attachments[i]
		}
	}
	return nil
}

// TaskView is a task with owner, assignee and project resolved.
type TaskView struct {
	*Task
	Owner    *User    `json:"owner,omitempty"`
	Assignee *User    `json:"assignee,omitempty"`
	Project  *Project `json:"project,omitempty"`
}
