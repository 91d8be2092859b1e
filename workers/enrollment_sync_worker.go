// workers/enrollment_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"learning-gamification-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MirroredEnrollment matches the JSON the LMS sync endpoint returns.
type MirroredEnrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetEnrollmentChangesResponse is the top-level structure of the LMS response.
type GetEnrollmentChangesResponse struct {
	Enrollments []MirroredEnrollment `json:"enrollments"`
}

// EnrollmentSyncWorker mirrors the LMS enrollment table into the local
// enrollments table so challenge sweeps can select their eligible
// population without a cross-service call per batch.
type EnrollmentSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8600"
	endpointPath string // e.g., "/api/v1/public/enrollments"
	serviceToken string
	httpClient   *http.Client
}

func NewEnrollmentSyncWorker(db *gorm.DB, lmsBaseURL, endpointPath, serviceToken string) *EnrollmentSyncWorker {
	return &EnrollmentSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      lmsBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *EnrollmentSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Enrollment Sync Worker (LMS → enrollments)…")
	go w.run(ctx)
}

func (w *EnrollmentSyncWorker) run(ctx context.Context) {
	// Initial sync backfills from the beginning of time.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial enrollment sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ Enrollment sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Enrollment Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *EnrollmentSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM enrollments WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches enrollment changes since the cursor and upserts them.
func (w *EnrollmentSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid LMS base URL '%s': %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	query := endpoint.Query()
	query.Set("updated_since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch enrollment changes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("LMS sync endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var changes GetEnrollmentChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return fmt.Errorf("decode enrollment changes: %w", err)
	}
	if len(changes.Enrollments) == 0 {
		return nil
	}

	synced := 0
	for _, e := range changes.Enrollments {
		enrollment := models.Enrollment{
			ID:       e.ID,
			UserID:   e.UserID,
			CourseID: e.CourseID,
			Status:   e.Status,
		}
		err := w.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).Create(&enrollment).Error
		if err != nil {
			log.Printf("⚠️ [SYNC] Failed to upsert enrollment %s: %v", e.ID, err)
			continue
		}
		synced++
	}

	log.Printf("[SYNC] 📡 Mirrored %d/%d enrollment change(s) since %s",
		synced, len(changes.Enrollments), since.UTC().Format(time.RFC3339))
	return nil
}
