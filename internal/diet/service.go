package diet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zombor/diet-tracker/internal/capture"
	"github.com/zombor/diet-tracker/internal/nutrition"
	"github.com/zombor/diet-tracker/internal/scanning"
)

const defaultWeeklyBudget = 150

// ErrScanInFlight is returned when a scan starts while another is still
// running. Scans are strictly sequential; the trigger should be disabled
// until the outstanding scan finishes.
var ErrScanInFlight = errors.New("a scan is already in progress")

// IDGenerator generates unique IDs for items and notifications
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles diet tracking operations: the receipt scan pipeline, the
// review queue, the item ledger, budget, targets, progress and
// notifications.
type Service struct {
	db          DB
	detector    scanning.TextDetector
	extractor   scanning.Extractor
	camera      capture.Camera // nil when no capture device is configured
	queue       *ReviewQueue
	idGenerator IDGenerator
	timeSource  TimeSource
	scanBusy    atomic.Bool
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, detector scanning.TextDetector, extractor scanning.Extractor, camera capture.Camera) *Service {
	return NewServiceWithDeps(db, detector, extractor, camera, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, detector scanning.TextDetector, extractor scanning.Extractor, camera capture.Camera, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		detector:    detector,
		extractor:   extractor,
		camera:      camera,
		queue:       NewReviewQueue(),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

func (s *Service) today() string {
	return s.timeSource.Now().Format("2006-01-02")
}

// ScanReceipt runs one sequential scan: decode the payload, OCR it,
// pre-filter the text, extract candidates with the model and load them into
// the review queue. Detection and extraction failures abort the scan; no
// text and malformed model output degrade to an empty or unparsed result.
func (s *Service) ScanReceipt(ctx context.Context, imageData string) (scanning.ExtractionResult, error) {
	if !s.scanBusy.CompareAndSwap(false, true) {
		return scanning.ExtractionResult{}, ErrScanInFlight
	}
	defer s.scanBusy.Store(false)

	payload, contentType, err := scanning.DecodePayload(imageData)
	if err != nil {
		return scanning.ExtractionResult{}, fmt.Errorf("decoding image payload: %w", err)
	}

	image, err := scanning.PrepareImage(payload, contentType)
	if err != nil {
		return scanning.ExtractionResult{}, fmt.Errorf("preparing image: %w", err)
	}

	text, err := s.detector.DetectText(ctx, image)
	if err != nil {
		return scanning.ExtractionResult{}, fmt.Errorf("detecting text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		slog.Info("No text detected on receipt")
		s.queue.Replace(nil)
		return scanning.ExtractionResult{Items: []scanning.Candidate{}}, nil
	}

	// Prefiltering cuts token volume; when nothing survives the filter the
	// full text goes through so substantive content is never discarded.
	input := text
	if lines := scanning.FilterPricedLines(text); len(lines) > 0 {
		input = strings.Join(lines, "\n")
	}

	response, err := s.extractor.ExtractItems(ctx, input)
	if err != nil {
		return scanning.ExtractionResult{}, fmt.Errorf("extracting items: %w", err)
	}

	result := scanning.ParseItems(response)
	if result.Parsed() {
		s.queue.Replace(result.Items)
	} else {
		slog.Warn("Model response was not valid JSON", "length", len(result.Raw))
		s.queue.Replace(nil)
	}
	return result, nil
}

// CaptureAndScan grabs a still frame from the configured camera and scans
// it. The camera stream is released on every exit path.
func (s *Service) CaptureAndScan(ctx context.Context) (scanning.ExtractionResult, error) {
	if s.camera == nil {
		return scanning.ExtractionResult{}, capture.ErrDeviceUnavailable
	}

	payload, err := capture.Snapshot(ctx, s.camera)
	if err != nil {
		return scanning.ExtractionResult{}, err
	}
	return s.ScanReceipt(ctx, payload)
}

// PendingCandidates returns the review queue contents in order.
func (s *Service) PendingCandidates() []scanning.Candidate {
	return s.queue.Pending()
}

// ApproveCandidate converts the pending candidate at index into a FoodItem
// and saves it to the ledger.
func (s *Service) ApproveCandidate(index int) (*FoodItem, error) {
	item, err := s.queue.Approve(index, s.today())
	if err != nil {
		return nil, err
	}

	saved, err := s.saveNewItem(item)
	if err != nil {
		return nil, err
	}
	s.notify("Item logged!", fmt.Sprintf("%s has been added to your entries.", saved.Name), "info")
	return saved, nil
}

// ApproveAllCandidates approves every pending candidate in queue order,
// emitting one ledger item per candidate and leaving the queue empty.
func (s *Service) ApproveAllCandidates() ([]*FoodItem, error) {
	items := s.queue.ApproveAll(s.today())

	saved := make([]*FoodItem, 0, len(items))
	for _, item := range items {
		savedItem, err := s.saveNewItem(item)
		if err != nil {
			return saved, fmt.Errorf("saving %s: %w", item.Name, err)
		}
		saved = append(saved, savedItem)
	}
	if len(saved) > 0 {
		s.notify("Items logged!", fmt.Sprintf("%d items have been added to your entries.", len(saved)), "info")
	}
	return saved, nil
}

// DismissCandidate removes the pending candidate at index without emitting
// anything.
func (s *Service) DismissCandidate(index int) error {
	return s.queue.Dismiss(index)
}

// DismissCandidateByName removes the first pending candidate with the given
// name. Kept for the legacy review UI; ambiguous under duplicate names.
func (s *Service) DismissCandidateByName(name string) error {
	if !s.queue.DismissByName(name) {
		return ErrNoSuchCandidate
	}
	return nil
}

// EditCandidate mutates one field of a pending candidate.
func (s *Service) EditCandidate(index int, field, value string) error {
	return s.queue.Edit(index, field, value)
}

// AddItem validates a manually entered item, assigns an ID and saves it.
func (s *Service) AddItem(item FoodItem) (*FoodItem, error) {
	if strings.TrimSpace(item.Name) == "" {
		return nil, fmt.Errorf("item name is required")
	}
	if item.Price < 0 {
		return nil, fmt.Errorf("item price must not be negative")
	}
	if item.Date == "" {
		item.Date = s.today()
	}
	if _, err := time.Parse("2006-01-02", item.Date); err != nil {
		return nil, fmt.Errorf("item date must be YYYY-MM-DD")
	}

	saved, err := s.saveNewItem(item)
	if err != nil {
		return nil, err
	}
	s.notify("Item logged!", fmt.Sprintf("%s has been added to your entries.", saved.Name), "info")
	return saved, nil
}

func (s *Service) saveNewItem(item FoodItem) (*FoodItem, error) {
	item.ID = s.idGenerator.Generate()
	if err := s.db.SaveItem(&item); err != nil {
		return nil, fmt.Errorf("saving item to database: %w", err)
	}
	s.warnIfBudgetCrossed(item.Price)
	return &item, nil
}

// warnIfBudgetCrossed emits a warning notification when this purchase pushed
// the trailing-week spend over the weekly budget. Only the crossing purchase
// warns; already being over stays quiet.
func (s *Service) warnIfBudgetCrossed(price float64) {
	status, err := s.BudgetStatus()
	if err != nil {
		slog.Warn("Failed to compute budget status", "error", err)
		return
	}
	if status.OverBudget && status.Spent-price <= status.Budget {
		s.notify("Budget exceeded", fmt.Sprintf("You have spent %.2f of your %.2f weekly budget.", status.Spent, status.Budget), "budget")
	}
}

// ListItems returns all ledger items.
func (s *Service) ListItems() ([]*FoodItem, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// DeleteItem removes a ledger item by ID.
func (s *Service) DeleteItem(id string) error {
	if err := s.db.DeleteItem(id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// GetTargets returns the saved daily nutrition targets, or the defaults
// when none were saved yet.
func (s *Service) GetTargets() (nutrition.Targets, error) {
	targets, ok, err := s.db.GetTargets()
	if err != nil {
		return nutrition.Targets{}, fmt.Errorf("getting targets: %w", err)
	}
	if !ok {
		return nutrition.DefaultTargets(), nil
	}
	return targets, nil
}

// SetTargets persists new daily nutrition targets.
func (s *Service) SetTargets(targets nutrition.Targets) error {
	if err := s.db.SaveTargets(targets); err != nil {
		return fmt.Errorf("saving targets: %w", err)
	}
	s.notify("Targets updated", "Your nutrition targets have been saved.", "success")
	return nil
}

// notify records an in-app notification. A notification that fails to save
// is logged and dropped; it never fails the operation that produced it.
func (s *Service) notify(title, message, notificationType string) {
	notification := &Notification{
		ID:      s.idGenerator.Generate(),
		Title:   title,
		Message: message,
		Type:    notificationType,
		Date:    s.timeSource.Now(),
	}
	if err := s.db.SaveNotification(notification); err != nil {
		slog.Warn("Failed to save notification", "title", title, "error", err)
	}
}

// ListNotifications returns all in-app notifications.
func (s *Service) ListNotifications() ([]*Notification, error) {
	notifications, err := s.db.ListNotifications()
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flags one notification as read.
func (s *Service) MarkNotificationRead(id string) error {
	notifications, err := s.db.ListNotifications()
	if err != nil {
		return fmt.Errorf("listing notifications: %w", err)
	}
	for _, notification := range notifications {
		if notification.ID == id {
			notification.Read = true
			if err := s.db.SaveNotification(notification); err != nil {
				return fmt.Errorf("saving notification: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("notification not found: %s", id)
}

// ClearNotifications removes all notifications.
func (s *Service) ClearNotifications() error {
	if err := s.db.DeleteNotifications(); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}
