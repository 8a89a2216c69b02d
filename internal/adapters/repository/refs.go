package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/internhub/core/internal/domain/entities"
)

// Columns produced by LEFT JOINs against tasks and users. A NULL id means the
// referenced row is gone.

type taskRefColumns struct {
	RefTaskID       uuid.NullUUID  `db:"ref_task_id"`
	RefTaskTitle    sql.NullString `db:"ref_task_title"`
	RefTaskStatus   sql.NullString `db:"ref_task_status"`
	RefTaskDeadline sql.NullTime   `db:"ref_task_deadline"`
}

func (c taskRefColumns) taskRef() *entities.TaskRef {
	if !c.RefTaskID.Valid {
		return nil
	}
	return &entities.TaskRef{
		ID:       c.RefTaskID.UUID,
		Title:    c.RefTaskTitle.String,
		Status:   entities.TaskStatus(c.RefTaskStatus.String),
		Deadline: c.RefTaskDeadline.Time,
	}
}

type internRefColumns struct {
	RefInternID    uuid.NullUUID  `db:"ref_intern_id"`
	RefInternName  sql.NullString `db:"ref_intern_name"`
	RefInternEmail sql.NullString `db:"ref_intern_email"`
}

func (c internRefColumns) internRef() *entities.UserRef {
	if !c.RefInternID.Valid {
		return nil
	}
	return &entities.UserRef{ID: c.RefInternID.UUID, Name: c.RefInternName.String, Email: c.RefInternEmail.String}
}

type givenByRefColumns struct {
	RefGivenByID    uuid.NullUUID  `db:"ref_given_by_id"`
	RefGivenByName  sql.NullString `db:"ref_given_by_name"`
	RefGivenByEmail sql.NullString `db:"ref_given_by_email"`
}

func (c givenByRefColumns) givenByRef() *entities.UserRef {
	if !c.RefGivenByID.Valid {
		return nil
	}
	return &entities.UserRef{ID: c.RefGivenByID.UUID, Name: c.RefGivenByName.String, Email: c.RefGivenByEmail.String}
}
