package services

import (
	"fmt"

	"learning-gamification-system/models"

	"gorm.io/gorm"
)

// ScopeSet names the aggregation scopes an action belongs to. Either side
// may be nil when the owning course/unit could not be determined.
type ScopeSet struct {
	CourseID *string
	UnitID   *string
}

// ScopeResolver walks the content-structure relations to attribute a source
// action to its course and unit. Resolution is best-effort: lookup failures
// become diagnostics, never errors, so a broken relation can't block an XP
// award.
type ScopeResolver struct {
	DB *gorm.DB
}

func NewScopeResolver(db *gorm.DB) *ScopeResolver {
	return &ScopeResolver{DB: db}
}

// ResolveScopes returns whatever scopes it managed to determine plus notes
// for each hop that failed.
func (r *ScopeResolver) ResolveScopes(sourceType, sourceID string) (ScopeSet, []string) {
	switch sourceType {
	case models.SourceLesson:
		return r.lessonScopes(sourceID)
	case models.SourceCourse:
		return r.courseScopes(sourceID)
	case models.SourceAssignment:
		return r.assignmentScopes(sourceID)
	case models.SourceGrade:
		return r.gradeScopes(sourceID)
	case models.SourceAttempt:
		return r.attemptScopes(sourceID)
	case models.SourceSystem:
		return ScopeSet{}, nil
	default:
		return ScopeSet{}, []string{fmt.Sprintf("unknown source type %q", sourceType)}
	}
}

// lessonScopes walks lesson → unit → course.
func (r *ScopeResolver) lessonScopes(lessonID string) (ScopeSet, []string) {
	var lesson models.Lesson
	if err := r.DB.Where("id = ?", lessonID).First(&lesson).Error; err != nil {
		return ScopeSet{}, []string{fmt.Sprintf("lesson %s: %v", lessonID, err)}
	}
	return r.unitScopes(lesson.UnitID)
}

func (r *ScopeResolver) unitScopes(unitID string) (ScopeSet, []string) {
	var unit models.Unit
	if err := r.DB.Where("id = ?", unitID).First(&unit).Error; err != nil {
		return ScopeSet{}, []string{fmt.Sprintf("unit %s: %v", unitID, err)}
	}
	scopes := ScopeSet{UnitID: &unit.ID}
	var course models.Course
	if err := r.DB.Where("id = ?", unit.CourseID).First(&course).Error; err != nil {
		// Unit resolved; keep it even though the course hop failed.
		return scopes, []string{fmt.Sprintf("course %s: %v", unit.CourseID, err)}
	}
	scopes.CourseID = &course.ID
	return scopes, nil
}

func (r *ScopeResolver) courseScopes(courseID string) (ScopeSet, []string) {
	var course models.Course
	if err := r.DB.Where("id = ?", courseID).First(&course).Error; err != nil {
		return ScopeSet{}, []string{fmt.Sprintf("course %s: %v", courseID, err)}
	}
	return ScopeSet{CourseID: &course.ID}, nil
}

// assignmentScopes branches on what the assignment is attached to; a
// lesson-attached assignment walks the full lesson → unit → course chain.
func (r *ScopeResolver) assignmentScopes(assignmentID string) (ScopeSet, []string) {
	var task models.AssignmentTask
	if err := r.DB.Where("id = ?", assignmentID).First(&task).Error; err != nil {
		return ScopeSet{}, []string{fmt.Sprintf("assignment %s: %v", assignmentID, err)}
	}
	switch task.AttachableType {
	case models.AttachableCourse:
		return r.courseScopes(task.AttachableID)
	case models.AttachableUnit:
		return r.unitScopes(task.AttachableID)
	case models.AttachableLesson:
		return r.lessonScopes(task.AttachableID)
	default:
		return ScopeSet{}, []string{fmt.Sprintf("assignment %s: unknown attachable type %q", assignmentID, task.AttachableType)}
	}
}

// gradeScopes follows the grade to its source; assignment-sourced grades
// delegate to the assignment branch.
func (r *ScopeResolver) gradeScopes(gradeID string) (ScopeSet, []string) {
	var grade models.Grade
	if err := r.DB.Where("id = ?", gradeID).First(&grade).Error; err != nil {
		return ScopeSet{}, []string{fmt.Sprintf("grade %s: %v", gradeID, err)}
	}
	switch grade.SourceType {
	case models.SourceAssignment:
		return r.assignmentScopes(grade.SourceID)
	case models.SourceLesson:
		return r.lessonScopes(grade.SourceID)
	default:
		return ScopeSet{}, []string{fmt.Sprintf("grade %s: unresolvable source type %q", gradeID, grade.SourceType)}
	}
}

func (r *ScopeResolver) attemptScopes(attemptID string) (ScopeSet, []string) {
	var attempt models.LessonAttempt
	if err := r.DB.Where("id = ?", attemptID).First(&attempt).Error; err != nil {
		return ScopeSet{}, []string{fmt.Sprintf("attempt %s: %v", attemptID, err)}
	}
	return r.lessonScopes(attempt.LessonID)
}
